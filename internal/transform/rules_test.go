package transform

import (
	"reflect"
	"testing"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
)

func TestCustomer_DefaultsAllMissingFields(t *testing.T) {
	original := map[string]interface{}{
		"id":       "41442",
		"username": "customer-1",
	}

	got := Customer(original)

	want := map[string]interface{}{
		"id":            "41442",
		"username":      "customer-1",
		"firstName":     DefaultFirstName,
		"lastName":      DefaultLastName,
		"phone":         DefaultPhone,
		"email":         DefaultEmail,
		"applicationId": DefaultApplicationID,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Customer() = %v, want %v", got, want)
	}

	// Input must never be mutated.
	if _, ok := original["firstName"]; ok {
		t.Error("Customer() mutated its input record")
	}
}

func TestCustomer_PerFieldRules(t *testing.T) {
	tests := []struct {
		name  string
		in    map[string]interface{}
		key   string
		want  string
	}{
		{"missing firstName defaulted", map[string]interface{}{}, "firstName", DefaultFirstName},
		{"empty lastName defaulted", map[string]interface{}{"lastName": ""}, "lastName", DefaultLastName},
		{"null phone defaulted", map[string]interface{}{"phone": nil}, "phone", DefaultPhone},
		{"blank email defaulted", map[string]interface{}{"email": "   "}, "email", DefaultEmail},
		{"present email kept", map[string]interface{}{"email": "real@example.com"}, "email", "real@example.com"},
		{"present applicationId kept", map[string]interface{}{"applicationId": "777"}, "applicationId", "777"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Customer(tt.in)
			if got[tt.key] != tt.want {
				t.Errorf("Customer()[%q] = %v, want %q", tt.key, got[tt.key], tt.want)
			}
		})
	}
}

func TestCustomer_Idempotent(t *testing.T) {
	once := Customer(map[string]interface{}{"id": "41442"})
	twice := Customer(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("transforming a transformed customer changed it: %v vs %v", once, twice)
	}
}

func TestAccounts_Rules(t *testing.T) {
	doc := map[string]interface{}{
		"accounts": []interface{}{
			map[string]interface{}{
				"id":                   "5011648377",
				"accountNumberDisplay": "1234",
			},
			map[string]interface{}{
				"id":                     "5011648378",
				"oldestTransactionDate":  "2018-04-13",
				"detail":                 map[string]interface{}{"availableBalanceAmount": 1000.0},
				"realAccountNumberLast4": "9876",
				"accountNumberDisplay":   "5678",
			},
		},
	}

	got, err := Accounts(doc)
	if err != nil {
		t.Fatalf("Accounts() error: %v", err)
	}

	list := got["accounts"].([]interface{})
	first := list[0].(map[string]interface{})
	if first["oldestTransactionDate"] != DefaultOldestTransactionDate {
		t.Errorf("oldestTransactionDate = %v, want %q", first["oldestTransactionDate"], DefaultOldestTransactionDate)
	}
	if detail, ok := first["detail"].(map[string]interface{}); !ok || len(detail) != 0 {
		t.Errorf("detail = %v, want empty object", first["detail"])
	}
	if first["realAccountNumberLast4"] != "1234" {
		t.Errorf("realAccountNumberLast4 = %v, want copy of accountNumberDisplay %q", first["realAccountNumberLast4"], "1234")
	}

	// A fully populated account passes through untouched.
	second := list[1].(map[string]interface{})
	if second["oldestTransactionDate"] != "2018-04-13" {
		t.Errorf("populated oldestTransactionDate overwritten: %v", second["oldestTransactionDate"])
	}
	if second["realAccountNumberLast4"] != "9876" {
		t.Errorf("populated realAccountNumberLast4 overwritten: %v", second["realAccountNumberLast4"])
	}

	// Original untouched.
	origFirst := doc["accounts"].([]interface{})[0].(map[string]interface{})
	if _, ok := origFirst["detail"]; ok {
		t.Error("Accounts() mutated its input record")
	}
}

func TestAccounts_Idempotent(t *testing.T) {
	doc := map[string]interface{}{
		"accounts": []interface{}{
			map[string]interface{}{"id": "1", "accountNumberDisplay": "1234"},
		},
	}
	once, err := Accounts(doc)
	if err != nil {
		t.Fatalf("Accounts() error: %v", err)
	}
	twice, err := Accounts(once)
	if err != nil {
		t.Fatalf("Accounts() second pass error: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("transforming transformed accounts changed them: %v vs %v", once, twice)
	}
}

func TestAccounts_BadShape(t *testing.T) {
	_, err := Accounts(map[string]interface{}{"accounts": "nope"})
	if err == nil {
		t.Fatal("expected error for non-array accounts, got nil")
	}
}

func TestInstitutions_Policies(t *testing.T) {
	doc := map[string]interface{}{
		"institutions": []interface{}{
			map[string]interface{}{
				"id":                    101732.0,
				"name":                  "FinBank",
				"offerBusinessAccounts": true,
				"offerPersonalAccounts": false,
			},
		},
	}

	t.Run("passthrough keeps flags", func(t *testing.T) {
		got, err := Institutions(doc, config.PolicyPassthrough)
		if err != nil {
			t.Fatalf("Institutions() error: %v", err)
		}
		inst := got["institutions"].([]interface{})[0].(map[string]interface{})
		if _, ok := inst["offerBusinessAccounts"]; !ok {
			t.Error("passthrough removed offerBusinessAccounts")
		}
	})

	t.Run("strip-offer-flags removes both flags", func(t *testing.T) {
		got, err := Institutions(doc, config.PolicyStripOfferFlags)
		if err != nil {
			t.Fatalf("Institutions() error: %v", err)
		}
		inst := got["institutions"].([]interface{})[0].(map[string]interface{})
		for _, field := range []string{"offerBusinessAccounts", "offerPersonalAccounts"} {
			if _, ok := inst[field]; ok {
				t.Errorf("strip-offer-flags kept %s", field)
			}
		}
		if inst["name"] != "FinBank" {
			t.Errorf("strip-offer-flags touched unrelated field: name = %v", inst["name"])
		}
		// Original untouched.
		orig := doc["institutions"].([]interface{})[0].(map[string]interface{})
		if _, ok := orig["offerBusinessAccounts"]; !ok {
			t.Error("Institutions() mutated its input record")
		}
	})

	t.Run("unknown policy is an error", func(t *testing.T) {
		if _, err := Institutions(doc, "bogus"); err == nil {
			t.Error("expected error for unknown policy, got nil")
		}
	})
}

func TestTransactionPage_IdentityWithoutAliasing(t *testing.T) {
	page := map[string]interface{}{
		"found":        3.0,
		"transactions": []interface{}{map[string]interface{}{"id": 1.0}},
	}
	got := TransactionPage(page)
	if !reflect.DeepEqual(got, page) {
		t.Errorf("TransactionPage() = %v, want identical copy", got)
	}
	got["found"] = 4.0
	if page["found"] != 3.0 {
		t.Error("TransactionPage() output aliases its input")
	}
}
