package warehouse

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"semval/internal/domain"
	"semval/internal/semantic"
)

// CrossOptions configures a CrossValidator.
type CrossOptions struct {
	Logger *slog.Logger
	// Limiter throttles verification queries. Nil means unthrottled.
	Limiter *rate.Limiter
	// Concurrency is the number of tables verified at once. Values below 2
	// verify strictly one table after the other.
	Concurrency int
}

// TableOutcome is the result of verifying one logical table.
type TableOutcome struct {
	Table string
	Query string
	Rows  int
	Err   error
}

// CrossValidator runs one verification query per logical table.
type CrossValidator struct {
	exec        domain.QueryExecutor
	logger      *slog.Logger
	limiter     *rate.Limiter
	concurrency int
}

// NewCrossValidator creates a CrossValidator over exec.
func NewCrossValidator(exec domain.QueryExecutor, opts CrossOptions) *CrossValidator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossValidator{
		exec:        exec,
		logger:      logger,
		limiter:     opts.Limiter,
		concurrency: opts.Concurrency,
	}
}

// Validate verifies every table of model and returns the first failure in
// document order.
func (v *CrossValidator) Validate(ctx context.Context, model *domain.SemanticModel) error {
	_, err := v.ValidateTables(ctx, model)
	return err
}

// ValidateTables verifies the tables of model and returns the outcomes up to
// and including the first failure. Log records are emitted in document order
// whether or not queries ran in parallel.
func (v *CrossValidator) ValidateTables(ctx context.Context, model *domain.SemanticModel) ([]TableOutcome, error) {
	if v.concurrency < 2 || len(model.Tables) < 2 {
		outcomes := make([]TableOutcome, 0, len(model.Tables))
		for _, t := range model.Tables {
			v.logger.Info("Checking logical table: " + t.Name)
			o := v.checkTable(ctx, t)
			outcomes = append(outcomes, o)
			if o.Err != nil {
				return outcomes, o.Err
			}
			v.logger.Info("Validated logical table: " + t.Name)
		}
		return outcomes, nil
	}

	results := make([]TableOutcome, len(model.Tables))
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, t := range model.Tables {
		g.Go(func() error {
			results[i] = v.checkTable(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range results {
		v.logger.Info("Checking logical table: " + o.Table)
		if o.Err != nil {
			return results[:i+1], o.Err
		}
		v.logger.Info("Validated logical table: " + o.Table)
	}
	return results, nil
}

func (v *CrossValidator) checkTable(ctx context.Context, t domain.LogicalTable) TableOutcome {
	o := TableOutcome{Table: t.Name, Query: VerificationQuery(t)}

	if err := Lint(o.Query); err != nil {
		o.Err = &domain.QueryExecutionError{Table: t.Name, Query: o.Query, Unparsable: true, Err: err}
		return o
	}
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			o.Err = &domain.QueryExecutionError{Table: t.Name, Query: o.Query, Err: err}
			return o
		}
	}

	rs, err := v.exec.Execute(ctx, o.Query)
	if err != nil {
		o.Err = &domain.QueryExecutionError{Table: t.Name, Query: o.Query, Err: err}
		return o
	}
	if rs == nil {
		rs = &domain.ResultSet{}
	}
	o.Rows = len(rs.Rows)

	for _, col := range rs.Columns {
		if err := semantic.CheckResolvedDatatype(col.Name, col.DatabaseType); err != nil {
			o.Err = err
			return o
		}
	}
	v.logger.Debug("verification query succeeded", "table", t.Name, "query", o.Query, "rows", o.Rows)
	return o
}
