package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenloop/carbon-cli/internal/store"
)

var balanceUser string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show a user's point balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		if balanceUser == "" {
			return eris.New("--user is required")
		}

		st, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := st.GetBalance(cmd.Context(), balanceUser)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	},
}

func init() {
	balanceCmd.Flags().StringVar(&balanceUser, "user", "", "user id")
	rootCmd.AddCommand(balanceCmd)
}
