package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/ocrolus"
)

// Report collects per-stage counts for one run.
type Report struct {
	RunID string

	CustomerFetched     bool
	AccountsFetched     int
	PagesFetched        map[string]int // account id -> pages
	TransactionsFetched int
	InstitutionsFetched int
	InstitutionsSkipped int

	FilesTransformed int
	FilesCopied      int

	BookPK         string
	UploadResponse map[string]interface{}
	Ingestion      *ocrolus.Report

	// ClosingBalances is the ending balance of the last daily-balance entry
	// seen per account, for the run summary.
	ClosingBalances map[string]decimal.Decimal
}

// TotalPages sums the pages fetched across all accounts.
func (r Report) TotalPages() int {
	total := 0
	for _, n := range r.PagesFetched {
		total += n
	}
	return total
}

// closingBalance extracts the ending balance of the final daily-balance
// entry in a transaction page, if the page carries the side channel. The
// source serves balances as JSON numbers or strings; both go through
// decimal so money never rides a float.
func closingBalance(page map[string]interface{}) (decimal.Decimal, bool) {
	if page == nil {
		return decimal.Decimal{}, false
	}
	series, ok := page["dailyBalances"].([]interface{})
	if !ok || len(series) == 0 {
		return decimal.Decimal{}, false
	}
	last, ok := series[len(series)-1].(map[string]interface{})
	if !ok {
		return decimal.Decimal{}, false
	}
	switch v := last["endingBalance"].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}
