package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"semval/internal/domain"
	"semval/internal/source"
	"semval/internal/validate"
	"semval/internal/warehouse"
	"semval/internal/watch"
)

type tableReport struct {
	Table string `json:"table"`
	Query string `json:"query"`
	Rows  int    `json:"rows"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type runReport struct {
	RunID      string        `json:"run_id"`
	Model      string        `json:"model,omitempty"`
	Account    string        `json:"account,omitempty"`
	OK         bool          `json:"ok"`
	Kind       string        `json:"kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Tables     []tableReport `json:"tables"`
}

func newRunReport(res *validate.Result) runReport {
	rep := runReport{
		RunID:      res.RunID,
		Model:      res.Model,
		Account:    res.Account,
		OK:         res.OK(),
		DurationMS: res.Duration.Milliseconds(),
		Tables:     make([]tableReport, 0, len(res.Tables)),
	}
	if res.Err != nil {
		rep.Kind = domain.ErrorKind(res.Err)
		rep.Error = res.Err.Error()
	}
	for _, t := range res.Tables {
		tr := tableReport{Table: t.Table, Query: t.Query, Rows: t.Rows, OK: t.Err == nil}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		}
		rep.Tables = append(rep.Tables, tr)
	}
	return rep
}

func printReport(cmd *cobra.Command, rep runReport) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		return printJSON(out, rep)
	}

	if len(rep.Tables) > 0 {
		rows := make([][]string, 0, len(rep.Tables))
		for _, t := range rep.Tables {
			status := "ok"
			if !t.OK {
				status = "failed"
			}
			rows = append(rows, []string{t.Table, strconv.Itoa(t.Rows), status})
		}
		if err := printTable(out, []string{"TABLE", "ROWS", "STATUS"}, rows); err != nil {
			return err
		}
	}
	if rep.OK {
		_, _ = fmt.Fprintf(out, "Semantic model %q is valid.\n", rep.Model)
		return nil
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), rep.Error)
	return nil
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		file         string
		account      string
		accountsFile string
		metricsFile  string
		watchFile    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a semantic model against a warehouse account",
		Long: "Checks the document's size, structure and semantic rules, then runs one\n" +
			"verification query per logical table against the target account.\n" +
			"The document may be a local path or an s3://, gs:// or az:// URL.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accountsFile == "" {
				accountsFile = a.cfg.AccountsFile
			}
			accounts, err := warehouse.LoadAccounts(accountsFile)
			if err != nil {
				return fmt.Errorf("load accounts: %w", err)
			}

			var metrics *validate.Metrics
			if metricsFile != "" {
				metrics = validate.NewMetrics()
			}
			v := validate.New(validate.Options{
				Logger:      a.logger,
				Connectors:  warehouse.NewRegistry(accounts, a.logger),
				Fetcher:     source.NewFetcher(a.cfg.Source(), a.logger),
				Metrics:     metrics,
				Concurrency: a.cfg.Concurrency,
				Limiter:     a.cfg.Limiter(),
			})

			once := func(ctx context.Context) error {
				res := v.RunFromPath(ctx, file, account)
				if err := printReport(cmd, newRunReport(res)); err != nil {
					return err
				}
				if err := metrics.WriteTextfile(metricsFile); err != nil {
					return err
				}
				if !res.OK() {
					return errInvalid
				}
				return nil
			}

			if !watchFile {
				return once(cmd.Context())
			}

			loc, err := source.ParseLocation(file)
			if err != nil {
				return err
			}
			if loc.Scheme != source.SchemeFile {
				return fmt.Errorf("--watch needs a local file, got %s", loc)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rerun := func(ctx context.Context) {
				if err := once(ctx); err != nil && !errors.Is(err, errInvalid) {
					a.logger.Error("validation run failed", "error", err)
				}
			}
			rerun(ctx)
			return watch.NewFileWatcher(loc.Key, 0, a.logger).Run(ctx, rerun)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Semantic model document (path or object storage URL)")
	cmd.Flags().StringVarP(&account, "account", "a", "", "Target warehouse account")
	cmd.Flags().StringVar(&accountsFile, "accounts-file", "", "Warehouse accounts file (default $SEMVAL_ACCOUNTS_FILE)")
	cmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this node_exporter textfile after each run")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "Re-validate whenever the local file changes")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
