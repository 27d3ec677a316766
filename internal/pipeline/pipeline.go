// Package pipeline wires the export stages together: authenticate against
// the source, fetch the four record types, transform, authenticate against
// the sink, upload, and report ingestion status. Stages run strictly
// sequentially and fail fast; a failed stage aborts the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/events"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/finicity"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/ocrolus"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/runlog"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/store"
)

// Step represents a single step in the export pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	Config *config.Config

	Source *finicity.Client
	Sink   *ocrolus.Client

	Original    store.Layout
	Transformed store.Layout

	Runlog runlog.Recorder
	Events events.Publisher

	// Accounts is the fetched account collection; transaction and
	// institution fetching key off it.
	Accounts map[string]interface{}

	Report Report
}

// NewState builds a State from configuration with clients constructed but
// not yet authenticated. Runlog and Events default to no-ops.
func NewState(cfg *config.Config) *State {
	return &State{
		Config: cfg,
		Source: finicity.NewClient(cfg.Finicity.BaseURL, finicity.Credentials{
			PartnerID:     cfg.Finicity.PartnerID,
			PartnerSecret: cfg.Finicity.PartnerSecret,
			AppKey:        cfg.Finicity.AppKey,
			CustomerID:    cfg.Finicity.CustomerID,
		}),
		Sink: ocrolus.NewClient(cfg.Ocrolus.BaseURL, cfg.Ocrolus.TokenURL, ocrolus.Credentials{
			ClientID:     cfg.Ocrolus.ClientID,
			ClientSecret: cfg.Ocrolus.ClientSecret,
		}),
		Original:    store.NewLayout(cfg.DataDir),
		Transformed: store.NewLayout(cfg.TransformedDir),
		Runlog:      runlog.Noop{},
		Events:      events.Noop{},
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewExportPipeline creates the standard 9-step pipeline for a full run.
func NewExportPipeline() *Pipeline {
	return NewPipeline(
		&AuthenticateSourceStep{},
		&FetchCustomerStep{},
		&FetchAccountsStep{},
		&FetchTransactionsStep{},
		&FetchInstitutionsStep{Policy: finicity.Lenient},
		&TransformStep{},
		&AuthenticateSinkStep{},
		&UploadStep{},
		&StatusStep{},
	)
}

// NewFetchPipeline creates the pipeline for the fetch stage alone.
func NewFetchPipeline() *Pipeline {
	return NewPipeline(
		&AuthenticateSourceStep{},
		&FetchCustomerStep{},
		&FetchAccountsStep{},
		&FetchTransactionsStep{},
		&FetchInstitutionsStep{Policy: finicity.Lenient},
	)
}

// NewTransformPipeline creates the pipeline for the transform stage alone.
func NewTransformPipeline() *Pipeline {
	return NewPipeline(&TransformStep{})
}

// NewUploadPipeline creates the pipeline for the upload stage alone.
func NewUploadPipeline() *Pipeline {
	return NewPipeline(
		&AuthenticateSinkStep{},
		&UploadStep{},
	)
}

// NewStatusPipeline creates the pipeline for the status stage alone.
func NewStatusPipeline() *Pipeline {
	return NewPipeline(
		&AuthenticateSinkStep{},
		&StatusStep{},
	)
}
