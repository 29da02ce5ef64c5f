package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"semval/internal/semantic"
	"semval/internal/source"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		file string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Convert a JSON semantic model to YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := source.NewFetcher(a.cfg.Source(), a.logger).Fetch(cmd.Context(), file)
			if err != nil {
				return err
			}
			model, err := semantic.DecodeJSON([]byte(data))
			if err != nil {
				return err
			}
			text, err := semantic.Render(model)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil { //nolint:gosec // output file is user-chosen
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.logger.Info("rendered semantic model", "model", model.Name, "path", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON semantic model (path or object storage URL)")
	cmd.Flags().StringVar(&out, "out", "", "Write YAML here instead of stdout")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
