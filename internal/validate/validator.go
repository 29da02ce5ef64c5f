// Package validate runs the semantic model validation pipeline: size guard,
// strict parse, semantic checks and the warehouse cross-check.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"semval/internal/domain"
	"semval/internal/semantic"
	"semval/internal/source"
	"semval/internal/warehouse"
)

// Options configures a Validator.
type Options struct {
	Logger      *slog.Logger
	Connectors  warehouse.ConnectorFactory
	Fetcher     source.DocumentFetcher
	Metrics     *Metrics
	Concurrency int
	Limiter     *rate.Limiter
}

// Result is the verdict of one validation run.
type Result struct {
	RunID    string                   `json:"run_id"`
	Model    string                   `json:"model,omitempty"`
	Account  string                   `json:"account"`
	Tables   []warehouse.TableOutcome `json:"-"`
	Duration time.Duration            `json:"-"`
	Err      error                    `json:"-"`
}

// OK reports whether the run passed.
func (r *Result) OK() bool { return r.Err == nil }

// Validator validates semantic models. It holds no per-run state and may be
// reused.
type Validator struct {
	logger      *slog.Logger
	connectors  warehouse.ConnectorFactory
	fetcher     source.DocumentFetcher
	metrics     *Metrics
	concurrency int
	limiter     *rate.Limiter
}

// New creates a Validator.
func New(opts Options) *Validator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = source.NewFetcher(source.Config{}, logger)
	}
	return &Validator{
		logger:      logger,
		connectors:  opts.Connectors,
		fetcher:     fetcher,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		limiter:     opts.Limiter,
	}
}

// ValidateFromPath fetches the document at path and validates it against account.
func (v *Validator) ValidateFromPath(ctx context.Context, path, account string) error {
	return v.RunFromPath(ctx, path, account).Err
}

// Validate validates the document text against account.
func (v *Validator) Validate(ctx context.Context, text, account string) error {
	return v.Run(ctx, text, account).Err
}

// ValidateModel renders model to its document form and validates that.
func (v *Validator) ValidateModel(ctx context.Context, model *domain.SemanticModel, account string) error {
	text, err := semantic.Render(model)
	if err != nil {
		return err
	}
	return v.Validate(ctx, text, account)
}

// RunFromPath is ValidateFromPath returning the full verdict.
func (v *Validator) RunFromPath(ctx context.Context, path, account string) *Result {
	text, err := v.fetcher.Fetch(ctx, path)
	if err != nil {
		res := &Result{RunID: uuid.NewString(), Account: account, Err: err}
		v.metrics.RecordRun(domain.ErrorKind(err), 0)
		return res
	}
	return v.Run(ctx, text, account)
}

// Run validates text against account and returns the verdict. Stages run in
// order and the first failure ends the run:
//
//  1. size guard
//  2. strict parse
//  3. semantic constraints
//  4. one verification query per logical table
//
// Parse errors are returned as is; every later failure is wrapped in a
// *domain.ModelValidationError.
func (v *Validator) Run(ctx context.Context, text, account string) *Result {
	res := &Result{RunID: uuid.NewString(), Account: account}
	logger := v.logger.With("run_id", res.RunID)
	start := time.Now()

	res.Err = v.run(ctx, logger, res, text)

	res.Duration = time.Since(start)
	outcome := "ok"
	if res.Err != nil {
		outcome = domain.ErrorKind(res.Err)
		logger.Debug("validation failed", "kind", outcome, "error", res.Err)
	}
	v.metrics.RecordRun(outcome, res.Duration)
	return res
}

// Static runs the stages that need no warehouse: size guard, strict parse and
// semantic constraints. Errors follow the same wrapping rules as Run.
func Static(text string) (*domain.SemanticModel, error) {
	return static(text, func(string, time.Time) {})
}

func static(text string, observe func(stage string, start time.Time)) (*domain.SemanticModel, error) {
	t := time.Now()
	if err := semantic.CheckSize(text); err != nil {
		return nil, &domain.ModelValidationError{Err: err}
	}
	observe("size", t)

	t = time.Now()
	model, err := semantic.Parse(text)
	if err != nil {
		return nil, err
	}
	observe("parse", t)

	t = time.Now()
	if err := semantic.Check(model); err != nil {
		return model, &domain.ModelValidationError{Err: err}
	}
	observe("semantic", t)
	return model, nil
}

func (v *Validator) run(ctx context.Context, logger *slog.Logger, res *Result, text string) error {
	model, err := static(text, func(stage string, start time.Time) {
		v.metrics.ObserveStage(stage, time.Since(start))
	})
	if model != nil {
		res.Model = model.Name
	}
	if err != nil {
		return err
	}

	if v.connectors == nil {
		return errors.New("no warehouse connector configured")
	}
	exec, err := v.connectors.Open(ctx, res.Account)
	if err != nil {
		return &domain.ModelValidationError{Err: &domain.QueryExecutionError{
			Err: fmt.Errorf("connect to warehouse account %q: %w", res.Account, err),
		}}
	}
	defer func() {
		if err := exec.Close(); err != nil {
			logger.Warn("closing warehouse connection failed", "account", res.Account, "error", err)
		}
	}()

	t := time.Now()
	cv := warehouse.NewCrossValidator(exec, warehouse.CrossOptions{
		Logger:      logger,
		Limiter:     v.limiter,
		Concurrency: v.concurrency,
	})
	outcomes, err := cv.ValidateTables(ctx, model)
	res.Tables = outcomes
	for _, o := range outcomes {
		v.metrics.RecordTable(o.Err == nil)
	}
	v.metrics.ObserveStage("warehouse", time.Since(t))
	if err != nil {
		return &domain.ModelValidationError{Err: err}
	}

	logger.Info("Successfully validated!")
	return nil
}
