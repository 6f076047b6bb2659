package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsReconcileCmd())
	return cmd
}

func accountsAddCmd() *cobra.Command {
	var (
		institution string
		accountType string
		opening     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			openingBalance, err := decimal.NewFromString(opening)
			if err != nil {
				return fmt.Errorf("invalid opening balance %q: %w", opening, err)
			}

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := &model.Account{
				Name:           args[0],
				Institution:    institution,
				Type:           model.AccountType(accountType),
				OpeningBalance: openingBalance,
				Balance:        openingBalance,
			}
			if err := store.CreateAccount(cmd.Context(), account); err != nil {
				return err
			}

			fmt.Printf("Created account %s (%s) with balance %s\n", account.Name, account.ID, account.Balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&institution, "institution", "", "bank or institution label")
	cmd.Flags().StringVar(&accountType, "type", string(model.AccountChecking), "account type (checking, savings, cash, credit)")
	cmd.Flags().StringVar(&opening, "opening-balance", "0", "opening balance")
	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tINSTITUTION\tTYPE\tBALANCE")
			for _, account := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					account.ID, account.Name, account.Institution, account.Type, account.Balance)
			}
			return w.Flush()
		},
	}
}

func accountsReconcileCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Compare a stored balance against transaction sums and optionally repair drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := store.RecomputeBalance(cmd.Context(), args[0], repair)
			if err != nil {
				return err
			}

			if !report.InDrift() {
				fmt.Printf("Account %s is consistent: balance %s\n", report.AccountID, report.StoredBalance)
				return nil
			}

			fmt.Printf("Account %s has drifted: stored %s, computed %s (drift %s)\n",
				report.AccountID, report.StoredBalance, report.ComputedBalance, report.Drift)
			if report.Repaired {
				fmt.Printf("Balance repaired to %s\n", report.ComputedBalance)
			} else {
				fmt.Println("Re-run with --repair to overwrite the stored balance")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "overwrite the stored balance with the computed one")
	return cmd
}
