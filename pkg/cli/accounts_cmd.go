package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"semval/internal/warehouse"
)

type accountReport struct {
	Name   string `json:"name"`
	Driver string `json:"driver"`
}

func newAccountsCmd(a *app) *cobra.Command {
	var accountsFile string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the configured warehouse accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accountsFile == "" {
				accountsFile = a.cfg.AccountsFile
			}
			accounts, err := warehouse.LoadAccounts(accountsFile)
			if err != nil {
				return fmt.Errorf("load accounts: %w", err)
			}

			names := warehouse.NewRegistry(accounts, a.logger).Accounts()
			reports := make([]accountReport, 0, len(names))
			for _, name := range names {
				reports = append(reports, accountReport{Name: name, Driver: accounts[name].Driver})
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), reports)
			}
			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				rows = append(rows, []string{r.Name, r.Driver})
			}
			return printTable(cmd.OutOrStdout(), []string{"NAME", "DRIVER"}, rows)
		},
	}

	cmd.Flags().StringVar(&accountsFile, "accounts-file", "", "Warehouse accounts file (default $SEMVAL_ACCOUNTS_FILE)")

	return cmd
}
