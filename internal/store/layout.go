// Package store owns the on-disk layout of a fetched or transformed dataset:
//
//	<root>/customers.json
//	<root>/accounts.json
//	<root>/transactions/transactions_<acctID>_page_<n>.json
//	<root>/institutions/institution_<instID>.json
//
// The original and transformed datasets are two independent Layout roots and
// are never mixed.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	customersFile   = "customers.json"
	accountsFile    = "accounts.json"
	transactionsDir = "transactions"
	institutionsDir = "institutions"
)

// Layout resolves record paths under one dataset root.
type Layout struct {
	root string
}

// NewLayout returns a Layout rooted at dir. Nothing is created until the
// first write.
func NewLayout(dir string) Layout {
	return Layout{root: dir}
}

// Root returns the dataset root directory.
func (l Layout) Root() string { return l.root }

// CustomerPath returns the path of the single customer record.
func (l Layout) CustomerPath() string { return filepath.Join(l.root, customersFile) }

// AccountsPath returns the path of the account collection record.
func (l Layout) AccountsPath() string { return filepath.Join(l.root, accountsFile) }

// TransactionsDir returns the directory holding transaction page files.
func (l Layout) TransactionsDir() string { return filepath.Join(l.root, transactionsDir) }

// InstitutionsDir returns the directory holding institution files.
func (l Layout) InstitutionsDir() string { return filepath.Join(l.root, institutionsDir) }

// TransactionPagePath returns the path of page n for the given account.
// Pages are numbered from 1.
func (l Layout) TransactionPagePath(accountID string, page int) string {
	name := fmt.Sprintf("transactions_%s_page_%d.json", accountID, page)
	return filepath.Join(l.TransactionsDir(), name)
}

// InstitutionPath returns the path of the record for one institution.
func (l Layout) InstitutionPath(institutionID string) string {
	name := fmt.Sprintf("institution_%s.json", institutionID)
	return filepath.Join(l.InstitutionsDir(), name)
}

// ListTransactionPages returns every transaction page file under the layout,
// ordered by account and then by page number, so page 10 follows page 9
// rather than page 1. A missing directory is an empty list, not an error.
func (l Layout) ListTransactionPages() ([]string, error) {
	paths, err := listRecords(l.TransactionsDir(), "transactions_")
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		bi, ni := splitPage(paths[i])
		bj, nj := splitPage(paths[j])
		if bi != bj {
			return bi < bj
		}
		return ni < nj
	})
	return paths, nil
}

// splitPage separates the numeric page suffix from the rest of a page file
// name. Files without a parseable suffix sort by full name.
func splitPage(path string) (string, int) {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	idx := strings.LastIndex(name, "_page_")
	if idx < 0 {
		return name, 0
	}
	n, err := strconv.Atoi(name[idx+len("_page_"):])
	if err != nil {
		return name, 0
	}
	return name[:idx], n
}

// ListInstitutionFiles returns every institution file under the layout,
// sorted by name. A missing directory is an empty list, not an error.
func (l Layout) ListInstitutionFiles() ([]string, error) {
	return listRecords(l.InstitutionsDir(), "institution_")
}

func listRecords(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
