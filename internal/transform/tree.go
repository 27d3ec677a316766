package transform

import (
	"fmt"
	"path/filepath"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/store"
)

// TreeResult summarizes one tree transformation.
type TreeResult struct {
	FilesTransformed int
	FilesCopied      int // record types whose flag was disabled
}

// Tree reads every record from the original layout, applies the configured
// rules, and writes the result to the transformed layout under the same
// relative paths. The original tree is never written to. Every output file
// is re-read after writing; output that does not parse is fatal.
func Tree(src, dst store.Layout, cfg config.Transform) (TreeResult, error) {
	var res TreeResult

	customer, err := store.ReadJSON(src.CustomerPath())
	if err != nil {
		return res, err
	}
	if cfg.Customer {
		customer = Customer(customer)
	}
	if err := writeVerified(dst.CustomerPath(), customer, &res, cfg.Customer); err != nil {
		return res, err
	}

	accounts, err := store.ReadJSON(src.AccountsPath())
	if err != nil {
		return res, err
	}
	if cfg.Accounts {
		if accounts, err = Accounts(accounts); err != nil {
			return res, err
		}
	}
	if err := writeVerified(dst.AccountsPath(), accounts, &res, cfg.Accounts); err != nil {
		return res, err
	}

	pages, err := src.ListTransactionPages()
	if err != nil {
		return res, err
	}
	for _, path := range pages {
		page, err := store.ReadJSON(path)
		if err != nil {
			return res, err
		}
		if cfg.Transactions {
			page = TransactionPage(page)
		}
		out := filepath.Join(dst.TransactionsDir(), filepath.Base(path))
		if err := writeVerified(out, page, &res, cfg.Transactions); err != nil {
			return res, err
		}
	}

	institutions, err := src.ListInstitutionFiles()
	if err != nil {
		return res, err
	}
	for _, path := range institutions {
		inst, err := store.ReadJSON(path)
		if err != nil {
			return res, err
		}
		if cfg.Institutions {
			if inst, err = Institutions(inst, cfg.InstitutionPolicy); err != nil {
				return res, err
			}
		}
		out := filepath.Join(dst.InstitutionsDir(), filepath.Base(path))
		if err := writeVerified(out, inst, &res, cfg.Institutions); err != nil {
			return res, err
		}
	}

	return res, nil
}

func writeVerified(path string, doc map[string]interface{}, res *TreeResult, transformed bool) error {
	if err := store.WriteJSON(path, doc); err != nil {
		return err
	}
	if _, err := store.ReadJSON(path); err != nil {
		return fmt.Errorf("verifying transformed output: %w", err)
	}
	if transformed {
		res.FilesTransformed++
	} else {
		res.FilesCopied++
	}
	return nil
}
