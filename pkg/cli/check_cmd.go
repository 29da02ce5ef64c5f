package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"semval/internal/domain"
	"semval/internal/source"
	"semval/internal/validate"
)

type checkReport struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model,omitempty"`
	Tables int    `json:"tables"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newCheckCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a semantic model offline",
		Long:  "Runs the size, structure and semantic checks without contacting a warehouse.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := source.NewFetcher(a.cfg.Source(), a.logger).Fetch(cmd.Context(), file)
			if err != nil {
				return err
			}

			model, err := validate.Static(text)
			rep := checkReport{OK: err == nil}
			if model != nil {
				rep.Model = model.Name
				rep.Tables = len(model.Tables)
			}
			if err != nil {
				rep.Kind = domain.ErrorKind(err)
				rep.Error = err.Error()
			}

			if getOutputFormat(cmd) == "json" {
				if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else if rep.OK {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Semantic model %q passed offline checks (%d logical tables).\n", rep.Model, rep.Tables)
			} else {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), rep.Error)
			}

			if !rep.OK {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Semantic model document (path or object storage URL)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
