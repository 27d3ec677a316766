// Package transform applies the field-defaulting and field-removal rules the
// Document Platform's ingestion requires, without ever mutating the fetched
// records. Records are generic JSON maps so fields this code does not know
// about survive the round trip untouched.
package transform

import (
	"fmt"
	"strings"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
)

// Placeholder values applied by the default-if-absent rules.
const (
	DefaultFirstName     = "FirstName"
	DefaultLastName      = "LastName"
	DefaultPhone         = "1-801-984-4200"
	DefaultEmail         = "myname@mycompany.com"
	DefaultApplicationID = "123456789"

	// DefaultOldestTransactionDate is the fixed epoch constant used when an
	// account carries no oldestTransactionDate.
	DefaultOldestTransactionDate = "1900-01-01"
)

// Institution flag fields removed by the strip-offer-flags policy.
var strippedInstitutionFields = []string{"offerBusinessAccounts", "offerPersonalAccounts"}

// Error reports a record whose shape prevented rule application.
type Error struct {
	RecordType string
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %s", e.RecordType, e.Detail)
}

// Customer returns a copy of the customer record with each missing or empty
// personal field set to its placeholder. The five rules touch disjoint fields
// and each one is idempotent, so transforming an already-transformed record
// is a no-op.
func Customer(record map[string]interface{}) map[string]interface{} {
	out := deepCopy(record)
	defaultIfMissing(out, "firstName", DefaultFirstName)
	defaultIfMissing(out, "lastName", DefaultLastName)
	defaultIfMissing(out, "phone", DefaultPhone)
	defaultIfMissing(out, "email", DefaultEmail)
	defaultIfMissing(out, "applicationId", DefaultApplicationID)
	return out
}

// Accounts returns a copy of the account collection with the per-account
// rules applied: a fixed oldestTransactionDate when absent, an empty detail
// object when absent, and realAccountNumberLast4 copied from
// accountNumberDisplay when absent.
func Accounts(doc map[string]interface{}) (map[string]interface{}, error) {
	out := deepCopy(doc)
	list, ok := out["accounts"].([]interface{})
	if !ok {
		return nil, &Error{RecordType: "accounts", Detail: fmt.Sprintf("accounts is %T, want array", out["accounts"])}
	}
	for i, item := range list {
		account, ok := item.(map[string]interface{})
		if !ok {
			return nil, &Error{RecordType: "accounts", Detail: fmt.Sprintf("account %d is %T, want object", i, item)}
		}
		defaultIfMissing(account, "oldestTransactionDate", DefaultOldestTransactionDate)
		if _, ok := account["detail"]; !ok {
			account["detail"] = map[string]interface{}{}
		}
		if missingOrEmpty(account, "realAccountNumberLast4") {
			if display, ok := account["accountNumberDisplay"].(string); ok && display != "" {
				account["realAccountNumberLast4"] = display
			}
		}
	}
	return out, nil
}

// TransactionPage is the identity transform: pages are uploaded as fetched.
// It still copies so callers can rely on transform output never aliasing
// input.
func TransactionPage(doc map[string]interface{}) map[string]interface{} {
	return deepCopy(doc)
}

// Institutions applies the configured institution policy to a persisted
// institution record of shape {"institutions": [inst, ...]}. Under
// passthrough the record is copied unchanged; under strip-offer-flags the
// offerBusinessAccounts and offerPersonalAccounts fields are deleted from
// every institution object regardless of value.
func Institutions(doc map[string]interface{}, policy string) (map[string]interface{}, error) {
	out := deepCopy(doc)
	if policy == config.PolicyPassthrough {
		return out, nil
	}
	if policy != config.PolicyStripOfferFlags {
		return nil, &Error{RecordType: "institutions", Detail: fmt.Sprintf("unknown policy %q", policy)}
	}
	list, ok := out["institutions"].([]interface{})
	if !ok {
		return nil, &Error{RecordType: "institutions", Detail: fmt.Sprintf("institutions is %T, want array", out["institutions"])}
	}
	for i, item := range list {
		inst, ok := item.(map[string]interface{})
		if !ok {
			return nil, &Error{RecordType: "institutions", Detail: fmt.Sprintf("institution %d is %T, want object", i, item)}
		}
		for _, field := range strippedInstitutionFields {
			delete(inst, field)
		}
	}
	return out, nil
}

// defaultIfMissing sets m[key] = def when the field is absent, null, or an
// empty/blank string.
func defaultIfMissing(m map[string]interface{}, key, def string) {
	if missingOrEmpty(m, key) {
		m[key] = def
	}
}

func missingOrEmpty(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// deepCopy copies a JSON-shaped value so rule application never touches the
// caller's record.
func deepCopy(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopy(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
