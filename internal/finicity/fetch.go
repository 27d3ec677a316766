package finicity

import (
	"context"
	"fmt"
	"strconv"
)

// FetchPolicy decides how a per-item fetch reacts to a bad item.
type FetchPolicy int

const (
	// Strict aborts the whole fetch on the first bad response.
	Strict FetchPolicy = iota
	// Lenient skips the bad item and continues with the rest.
	Lenient
)

// FetchCustomer retrieves the customer record. Strict: any error response or
// non-JSON body fails the whole run.
func (c *Client) FetchCustomer(ctx context.Context) (map[string]interface{}, error) {
	path := fmt.Sprintf("/aggregation/v1/customers/%s", c.creds.CustomerID)
	return c.get(ctx, "customer", c.creds.CustomerID, path, nil)
}

// FetchAccounts retrieves the account collection for the customer. Strict.
// The response must carry an accounts array with unique account ids.
func (c *Client) FetchAccounts(ctx context.Context) (map[string]interface{}, error) {
	path := fmt.Sprintf("/aggregation/v1/customers/%s/accounts", c.creds.CustomerID)
	doc, err := c.get(ctx, "accounts", c.creds.CustomerID, path, nil)
	if err != nil {
		return nil, err
	}

	ids, err := AccountIDs(doc)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, &FetchError{Resource: "accounts", ID: id, Err: fmt.Errorf("duplicate account id in fetch")}
		}
		seen[id] = true
	}
	return doc, nil
}

// FetchInstitution retrieves one institution and wraps it in the persisted
// shape {"institutions": [inst]}.
func (c *Client) FetchInstitution(ctx context.Context, institutionID string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/institution/v2/institutions/%s", institutionID)
	doc, err := c.get(ctx, "institution", institutionID, path, nil)
	if err != nil {
		return nil, err
	}

	// The endpoint nests the record under "institution"; older versions
	// return it bare.
	inst := doc
	if nested, ok := doc["institution"].(map[string]interface{}); ok {
		inst = nested
	}
	return map[string]interface{}{"institutions": []interface{}{inst}}, nil
}

// AccountIDs extracts the account identifiers from a fetched account
// collection, in collection order.
func AccountIDs(accountsDoc map[string]interface{}) ([]string, error) {
	list, ok := accountsDoc["accounts"].([]interface{})
	if !ok {
		return nil, &FetchError{Resource: "accounts", Err: fmt.Errorf("accounts is %T, want array", accountsDoc["accounts"])}
	}
	ids := make([]string, 0, len(list))
	for i, item := range list {
		account, ok := item.(map[string]interface{})
		if !ok {
			return nil, &FetchError{Resource: "accounts", Err: fmt.Errorf("account %d is %T, want object", i, item)}
		}
		id := idString(account["id"])
		if id == "" {
			return nil, &FetchError{Resource: "accounts", Err: fmt.Errorf("account %d has no id", i)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InstitutionIDs extracts the distinct institutionId values referenced by the
// fetched accounts, preserving first-seen order.
func InstitutionIDs(accountsDoc map[string]interface{}) ([]string, error) {
	list, ok := accountsDoc["accounts"].([]interface{})
	if !ok {
		return nil, &FetchError{Resource: "accounts", Err: fmt.Errorf("accounts is %T, want array", accountsDoc["accounts"])}
	}
	seen := make(map[string]bool)
	var ids []string
	for _, item := range list {
		account, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id := idString(account["institutionId"])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// idString renders an id field that the source serves either as a JSON
// number or as a string.
func idString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatInt(int64(val), 10)
	default:
		return ""
	}
}
