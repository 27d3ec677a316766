package finicity

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// TransactionQuery bounds a per-account transaction fetch.
type TransactionQuery struct {
	FromDate int64 // epoch seconds, inclusive
	ToDate   int64 // epoch seconds, inclusive
	PageSize int
}

// PageSink receives each fetched page in order. Pages are numbered from 1.
// Returning an error aborts the loop.
type PageSink func(page int, doc map[string]interface{}) error

// FetchTransactionPages walks the paged transaction endpoint for one account,
// requesting the daily-balance side channel, and hands each page to sink.
//
// The loop continues while the response reports moreAvailable AND the page
// carried at least one transaction; the start offset advances by the number
// of transactions actually received, not the nominal page size, so a short
// page cannot skip records. Any page error is fatal.
//
// Returns the number of pages emitted and the total transactions seen.
func (c *Client) FetchTransactionPages(ctx context.Context, accountID string, q TransactionQuery, sink PageSink) (int, int, error) {
	path := fmt.Sprintf("/aggregation/v3/customers/%s/accounts/%s/transactions",
		c.creds.CustomerID, accountID)

	start := 1
	pages := 0
	total := 0
	for {
		query := url.Values{}
		query.Set("fromDate", strconv.FormatInt(q.FromDate, 10))
		query.Set("toDate", strconv.FormatInt(q.ToDate, 10))
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(q.PageSize))
		query.Set("sort", "asc")
		query.Set("includePending", "false")
		query.Set("includeBalances", "true")

		doc, err := c.get(ctx, "transactions", accountID, path, query)
		if err != nil {
			return pages, total, err
		}

		received := transactionCount(doc)
		pages++
		total += received
		if err := sink(pages, doc); err != nil {
			return pages, total, err
		}

		if !moreAvailable(doc) || received == 0 {
			return pages, total, nil
		}
		start += received
	}
}

func transactionCount(doc map[string]interface{}) int {
	list, ok := doc["transactions"].([]interface{})
	if !ok {
		return 0
	}
	return len(list)
}

func moreAvailable(doc map[string]interface{}) bool {
	switch v := doc["moreAvailable"].(type) {
	case bool:
		return v
	case string:
		// Some API versions serve the flag as "true"/"false".
		return v == "true"
	default:
		return false
	}
}
