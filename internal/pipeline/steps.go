package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/finicity"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/ocrolus"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/store"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/transform"
)

// Step 1: AuthenticateSourceStep exchanges partner credentials for an app token.
type AuthenticateSourceStep struct{}

func (s *AuthenticateSourceStep) Execute(ctx context.Context, state *State) error {
	return state.Source.Authenticate(ctx)
}

// Step 2: FetchCustomerStep fetches the customer record and persists it.
type FetchCustomerStep struct{}

func (s *FetchCustomerStep) Execute(ctx context.Context, state *State) error {
	customer, err := state.Source.FetchCustomer(ctx)
	if err != nil {
		return err
	}
	if err := store.WriteJSON(state.Original.CustomerPath(), customer); err != nil {
		return err
	}
	state.Report.CustomerFetched = true
	return nil
}

// Step 3: FetchAccountsStep fetches the account collection and persists it.
// Transaction and institution fetching key off this collection, so it must
// happen before both.
type FetchAccountsStep struct{}

func (s *FetchAccountsStep) Execute(ctx context.Context, state *State) error {
	accounts, err := state.Source.FetchAccounts(ctx)
	if err != nil {
		return err
	}
	if err := store.WriteJSON(state.Original.AccountsPath(), accounts); err != nil {
		return err
	}
	state.Accounts = accounts

	ids, err := finicity.AccountIDs(accounts)
	if err != nil {
		return err
	}
	state.Report.AccountsFetched = len(ids)
	return nil
}

// Step 4: FetchTransactionsStep walks the paged transaction endpoint per
// account, persisting one file per page. Any page error is fatal.
type FetchTransactionsStep struct{}

func (s *FetchTransactionsStep) Execute(ctx context.Context, state *State) error {
	ids, err := finicity.AccountIDs(state.Accounts)
	if err != nil {
		return err
	}
	if only := state.Config.Finicity.AccountID; only != "" {
		ids = []string{only}
	}

	q := finicity.TransactionQuery{
		FromDate: state.Config.FromDate,
		ToDate:   state.Config.ToDate,
		PageSize: state.Config.PageSize,
	}
	state.Report.PagesFetched = make(map[string]int, len(ids))

	for _, accountID := range ids {
		var lastPage map[string]interface{}
		pages, txs, err := state.Source.FetchTransactionPages(ctx, accountID, q,
			func(page int, doc map[string]interface{}) error {
				lastPage = doc
				return store.WriteJSON(state.Original.TransactionPagePath(accountID, page), doc)
			})
		if err != nil {
			return err
		}
		state.Report.PagesFetched[accountID] = pages
		state.Report.TransactionsFetched += txs
		if bal, ok := closingBalance(lastPage); ok {
			if state.Report.ClosingBalances == nil {
				state.Report.ClosingBalances = make(map[string]decimal.Decimal)
			}
			state.Report.ClosingBalances[accountID] = bal
		}
	}
	return nil
}

// Step 5: FetchInstitutionsStep fetches the distinct institutions referenced
// by the accounts. Under the Lenient policy a bad institution is skipped with
// a warning and its file removed; under Strict it aborts the run.
type FetchInstitutionsStep struct {
	Policy finicity.FetchPolicy
}

func (s *FetchInstitutionsStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	ids, err := finicity.InstitutionIDs(state.Accounts)
	if err != nil {
		return err
	}
	for _, id := range ids {
		path := state.Original.InstitutionPath(id)
		doc, err := state.Source.FetchInstitution(ctx, id)
		if err != nil {
			if s.Policy == finicity.Lenient {
				log.Warn().Str("institution_id", id).Err(err).Msg("Skipping institution")
				store.Remove(path)
				state.Report.InstitutionsSkipped++
				continue
			}
			return err
		}
		if err := store.WriteJSON(path, doc); err != nil {
			return err
		}
		state.Report.InstitutionsFetched++
	}
	return nil
}

// Step 6: TransformStep derives the transformed tree from the original tree.
type TransformStep struct{}

func (s *TransformStep) Execute(ctx context.Context, state *State) error {
	res, err := transform.Tree(state.Original, state.Transformed, state.Config.Transform)
	if err != nil {
		return err
	}
	state.Report.FilesTransformed = res.FilesTransformed
	state.Report.FilesCopied = res.FilesCopied
	return nil
}

// Step 7: AuthenticateSinkStep exchanges client credentials for a bearer token.
type AuthenticateSinkStep struct{}

func (s *AuthenticateSinkStep) Execute(ctx context.Context, state *State) error {
	return state.Sink.Authenticate(ctx)
}

// Step 8: UploadStep submits the transformed bundle in one multipart POST.
type UploadStep struct{}

func (s *UploadStep) Execute(ctx context.Context, state *State) error {
	pages, err := state.Transformed.ListTransactionPages()
	if err != nil {
		return err
	}
	institutions, err := state.Transformed.ListInstitutionFiles()
	if err != nil {
		return err
	}

	resp, err := state.Sink.UploadBundle(ctx, ocrolus.Bundle{
		BookPK:           state.Config.Ocrolus.BookPK,
		CustomersPath:    state.Transformed.CustomerPath(),
		AccountsPath:     state.Transformed.AccountsPath(),
		TransactionPaths: pages,
		InstitutionPaths: institutions,
	})
	if err != nil {
		return err
	}
	state.Report.BookPK = state.Config.Ocrolus.BookPK
	state.Report.UploadResponse = resp

	if state.Events != nil {
		if err := state.Events.Publish(ctx, uploadEvent(state)); err != nil {
			// Event delivery is advisory; the upload itself succeeded.
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Publishing upload event failed")
		}
	}
	return nil
}

// Step 9: StatusStep takes a point-in-time snapshot of the book's ingestion
// status. Rejected documents are a warning, never a run failure.
type StatusStep struct{}

func (s *StatusStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	report, err := state.Sink.BookStatus(ctx, state.Config.Ocrolus.BookPK)
	if err != nil {
		return err
	}
	state.Report.Ingestion = report

	for _, doc := range report.Docs {
		if doc.State == ocrolus.StateRejected {
			log.Warn().
				Str("doc_id", doc.ID).
				Str("doc_name", doc.Name).
				Str("reason", doc.Reason).
				Str("description", doc.Description).
				Msg("Document rejected")
		}
	}
	if report.Rejected > 0 {
		log.Warn().Int("rejected", report.Rejected).Int("total", report.Total).
			Msg("Book has rejected documents")
	}
	return nil
}
