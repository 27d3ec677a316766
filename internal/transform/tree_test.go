package transform

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/store"
)

func seedTree(t *testing.T, l store.Layout) {
	t.Helper()
	writeOrFail(t, l.CustomerPath(), map[string]interface{}{"id": "41442"})
	writeOrFail(t, l.AccountsPath(), map[string]interface{}{
		"accounts": []interface{}{
			map[string]interface{}{"id": "5011648377", "accountNumberDisplay": "1234", "institutionId": "101732"},
		},
	})
	writeOrFail(t, l.TransactionPagePath("5011648377", 1), map[string]interface{}{
		"found": 1.0, "displaying": 1.0, "moreAvailable": false,
		"transactions": []interface{}{map[string]interface{}{"id": 1.0}},
	})
	writeOrFail(t, l.InstitutionPath("101732"), map[string]interface{}{
		"institutions": []interface{}{
			map[string]interface{}{"id": 101732.0, "offerBusinessAccounts": true, "offerPersonalAccounts": true},
		},
	})
}

func writeOrFail(t *testing.T, path string, doc map[string]interface{}) {
	t.Helper()
	if err := store.WriteJSON(path, doc); err != nil {
		t.Fatalf("seeding %s: %v", path, err)
	}
}

func allEnabled() config.Transform {
	return config.Transform{
		Customer:          true,
		Accounts:          true,
		Transactions:      true,
		Institutions:      true,
		InstitutionPolicy: config.PolicyStripOfferFlags,
	}
}

func TestTree_TransformsEveryRecord(t *testing.T) {
	src := store.NewLayout(t.TempDir())
	dst := store.NewLayout(t.TempDir())
	seedTree(t, src)

	res, err := Tree(src, dst, allEnabled())
	if err != nil {
		t.Fatalf("Tree() error: %v", err)
	}
	if res.FilesTransformed != 4 {
		t.Errorf("FilesTransformed = %d, want 4", res.FilesTransformed)
	}

	customer, err := store.ReadJSON(dst.CustomerPath())
	if err != nil {
		t.Fatalf("reading transformed customer: %v", err)
	}
	if customer["firstName"] != DefaultFirstName {
		t.Errorf("transformed customer firstName = %v, want %q", customer["firstName"], DefaultFirstName)
	}

	inst, err := store.ReadJSON(dst.InstitutionPath("101732"))
	if err != nil {
		t.Fatalf("reading transformed institution: %v", err)
	}
	record := inst["institutions"].([]interface{})[0].(map[string]interface{})
	if _, ok := record["offerBusinessAccounts"]; ok {
		t.Error("transformed institution still carries offerBusinessAccounts")
	}
}

func TestTree_OriginalTreeUntouched(t *testing.T) {
	src := store.NewLayout(t.TempDir())
	dst := store.NewLayout(t.TempDir())
	seedTree(t, src)

	before, err := os.ReadFile(src.CustomerPath())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Tree(src, dst, allEnabled()); err != nil {
		t.Fatalf("Tree() error: %v", err)
	}

	after, err := os.ReadFile(src.CustomerPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Tree() modified the original customer file")
	}
}

func TestTree_DisabledTypesCopiedUnchanged(t *testing.T) {
	src := store.NewLayout(t.TempDir())
	dst := store.NewLayout(t.TempDir())
	seedTree(t, src)

	cfg := allEnabled()
	cfg.Customer = false
	cfg.Institutions = false

	res, err := Tree(src, dst, cfg)
	if err != nil {
		t.Fatalf("Tree() error: %v", err)
	}
	if res.FilesCopied != 2 {
		t.Errorf("FilesCopied = %d, want 2", res.FilesCopied)
	}

	customer, err := store.ReadJSON(dst.CustomerPath())
	if err != nil {
		t.Fatal(err)
	}
	original, err := store.ReadJSON(src.CustomerPath())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(customer, original) {
		t.Errorf("disabled customer transform changed the record: %v vs %v", customer, original)
	}

	inst, err := store.ReadJSON(dst.InstitutionPath("101732"))
	if err != nil {
		t.Fatal(err)
	}
	record := inst["institutions"].([]interface{})[0].(map[string]interface{})
	if _, ok := record["offerBusinessAccounts"]; !ok {
		t.Error("disabled institution transform still stripped flags")
	}
}

func TestTree_MalformedSourceIsFatal(t *testing.T) {
	src := store.NewLayout(t.TempDir())
	dst := store.NewLayout(t.TempDir())
	seedTree(t, src)

	if err := os.WriteFile(src.AccountsPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Tree(src, dst, allEnabled())
	if err == nil {
		t.Fatal("expected error for malformed accounts file, got nil")
	}
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *store.ValidationError", err)
	}
}
