// Package config loads pipeline configuration from a .env file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding key is unset.
const (
	DefaultPageSize       = 20
	DefaultDataDir        = "data"
	DefaultTransformedDir = "data-transformed"

	DefaultFinicityBaseURL = "https://api.finicity.com"
	DefaultOcrolusBaseURL  = "https://api.ocrolus.com"
	DefaultOcrolusTokenURL = "https://auth.ocrolus.com/oauth/token"
)

// Institution transform policies. Exactly one applies per run.
const (
	PolicyPassthrough     = "passthrough"
	PolicyStripOfferFlags = "strip-offer-flags"
)

// MissingKeyError reports a required configuration key that was not set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required configuration key %s", e.Key)
}

// Finicity holds Source Aggregator credentials and endpoint settings.
type Finicity struct {
	PartnerID     string
	PartnerSecret string
	AppKey        string
	CustomerID    string
	AccountID     string // optional: restrict the run to one account
	BaseURL       string
}

// Validate checks that the credentials required to talk to Finicity are set.
func (f Finicity) Validate() error {
	for _, kv := range []struct{ key, val string }{
		{"FINICITY_PARTNER_ID", f.PartnerID},
		{"FINICITY_PARTNER_SECRET", f.PartnerSecret},
		{"FINICITY_APP_KEY", f.AppKey},
		{"FINICITY_CUSTOMER_ID", f.CustomerID},
	} {
		if kv.val == "" {
			return &MissingKeyError{Key: kv.key}
		}
	}
	return nil
}

// Ocrolus holds Document Platform credentials and endpoint settings.
type Ocrolus struct {
	ClientID     string
	ClientSecret string
	BookPK       string
	BaseURL      string
	TokenURL     string
}

// Validate checks that the credentials required to talk to Ocrolus are set.
func (o Ocrolus) Validate() error {
	for _, kv := range []struct{ key, val string }{
		{"OCROLUS_CLIENT_ID", o.ClientID},
		{"OCROLUS_CLIENT_SECRET", o.ClientSecret},
		{"OCROLUS_BOOK_PK", o.BookPK},
	} {
		if kv.val == "" {
			return &MissingKeyError{Key: kv.key}
		}
	}
	return nil
}

// Transform holds the per-record-type enable flags and the institution policy.
type Transform struct {
	Customer          bool
	Accounts          bool
	Transactions      bool
	Institutions      bool
	InstitutionPolicy string
}

// Config is the full configuration surface of the pipeline.
type Config struct {
	Finicity  Finicity
	Ocrolus   Ocrolus
	Transform Transform

	FromDate int64 // epoch seconds, inclusive lower bound
	ToDate   int64 // epoch seconds, inclusive upper bound
	PageSize int

	DataDir        string
	TransformedDir string

	ArchiveBucket string
	KafkaBrokers  []string
	KafkaTopic    string
	RunlogProject string
	RunlogDataset string
}

// Load reads .env (if present) and the environment into a Config. Only
// syntactic problems are errors here; required credentials are checked by
// the per-provider Validate methods so that, say, a status-only invocation
// does not demand Finicity credentials.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	now := time.Now().Unix()
	fromDate, err := epochKey("FROM_DATE", time.Now().AddDate(0, 0, -90).Unix())
	if err != nil {
		return nil, err
	}
	toDate, err := epochKey("TO_DATE", now)
	if err != nil {
		return nil, err
	}

	pageSize, err := intKey("PAGE_SIZE", DefaultPageSize)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be at least 1, got %d", pageSize)
	}

	tc, err := boolKey("TRANSFORM_CUSTOMER", true)
	if err != nil {
		return nil, err
	}
	ta, err := boolKey("TRANSFORM_ACCOUNTS", true)
	if err != nil {
		return nil, err
	}
	tt, err := boolKey("TRANSFORM_TRANSACTIONS", true)
	if err != nil {
		return nil, err
	}
	ti, err := boolKey("TRANSFORM_INSTITUTIONS", true)
	if err != nil {
		return nil, err
	}

	policy := get("INSTITUTION_POLICY", PolicyStripOfferFlags)
	if policy != PolicyPassthrough && policy != PolicyStripOfferFlags {
		return nil, fmt.Errorf("INSTITUTION_POLICY must be %q or %q, got %q",
			PolicyPassthrough, PolicyStripOfferFlags, policy)
	}

	cfg := &Config{
		Finicity: Finicity{
			PartnerID:     os.Getenv("FINICITY_PARTNER_ID"),
			PartnerSecret: os.Getenv("FINICITY_PARTNER_SECRET"),
			AppKey:        os.Getenv("FINICITY_APP_KEY"),
			CustomerID:    os.Getenv("FINICITY_CUSTOMER_ID"),
			AccountID:     os.Getenv("FINICITY_ACCOUNT_ID"),
			BaseURL:       get("FINICITY_BASE_URL", DefaultFinicityBaseURL),
		},
		Ocrolus: Ocrolus{
			ClientID:     os.Getenv("OCROLUS_CLIENT_ID"),
			ClientSecret: os.Getenv("OCROLUS_CLIENT_SECRET"),
			BookPK:       os.Getenv("OCROLUS_BOOK_PK"),
			BaseURL:      get("OCROLUS_BASE_URL", DefaultOcrolusBaseURL),
			TokenURL:     get("OCROLUS_TOKEN_URL", DefaultOcrolusTokenURL),
		},
		Transform: Transform{
			Customer:          tc,
			Accounts:          ta,
			Transactions:      tt,
			Institutions:      ti,
			InstitutionPolicy: policy,
		},
		FromDate:       fromDate,
		ToDate:         toDate,
		PageSize:       pageSize,
		DataDir:        get("DATA_DIR", DefaultDataDir),
		TransformedDir: get("TRANSFORMED_DIR", DefaultTransformedDir),
		ArchiveBucket:  os.Getenv("ARCHIVE_BUCKET"),
		KafkaTopic:     get("KAFKA_TOPIC", "pipeline-events"),
		RunlogProject:  os.Getenv("RUNLOG_PROJECT"),
		RunlogDataset:  get("RUNLOG_DATASET", "finance"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intKey(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", k, v)
	}
	return n, nil
}

func epochKey(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be epoch seconds, got %q", k, v)
	}
	return n, nil
}

func boolKey(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", k, v)
	}
	return b, nil
}
