package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/query"
	"github.com/tallyhq/tally/internal/service"
	"github.com/tallyhq/tally/internal/settlement"
)

const dateLayout = "2006-01-02"

// obligationsCmd builds the command tree for either debts or receivables.
// The two differ only in kind and vocabulary.
func obligationsCmd(use string) *cobra.Command {
	kind := model.KindDebt
	short := "Manage scheduled debts (money you owe)"
	if use == "receivables" {
		kind = model.KindReceivable
		short = "Manage scheduled receivables (money owed to you)"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}
	cmd.AddCommand(obligationsAddCmd(kind))
	cmd.AddCommand(obligationsListCmd(kind))
	cmd.AddCommand(obligationsSettleCmd(kind))
	cmd.AddCommand(obligationsUnsettleCmd())
	cmd.AddCommand(obligationsDeleteCmd())
	return cmd
}

func obligationsAddCmd(kind model.ObligationKind) *cobra.Command {
	var (
		amountStr  string
		dueStr     string
		accountID  string
		categoryID string
		recurrence string
		maxCount   int
		endStr     string
	)

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a new obligation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amountStr, err)
			}
			dueDate, err := time.ParseInLocation(dateLayout, dueStr, time.Local)
			if err != nil {
				return fmt.Errorf("invalid due date %q (want YYYY-MM-DD): %w", dueStr, err)
			}

			obligation := &model.Obligation{
				Kind:        kind,
				Description: args[0],
				Amount:      amount,
				DueDate:     dueDate,
				AccountID:   accountID,
				CategoryID:  categoryID,
			}
			if recurrence != "" {
				obligation.Recurring = true
				obligation.RecurrencePeriod = model.RecurrencePeriod(recurrence)
				obligation.MaxOccurrences = maxCount
				if endStr != "" {
					end, parseErr := time.ParseInLocation(dateLayout, endStr, time.Local)
					if parseErr != nil {
						return fmt.Errorf("invalid end date %q (want YYYY-MM-DD): %w", endStr, parseErr)
					}
					obligation.RecurrenceEndDate = &end
				}
			}

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateObligation(cmd.Context(), obligation); err != nil {
				return err
			}

			fmt.Printf("Created %s %q (%s), due %s\n", kind, obligation.Description, obligation.ID, dueStr)
			return nil
		},
	}

	cmd.Flags().StringVar(&amountStr, "amount", "", "amount (required)")
	cmd.Flags().StringVar(&dueStr, "due", "", "due date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&accountID, "account", "", "linked account ID")
	cmd.Flags().StringVar(&categoryID, "category", "", "linked category ID")
	cmd.Flags().StringVar(&recurrence, "recurring", "", "recurrence period (weekly, monthly, yearly)")
	cmd.Flags().IntVar(&maxCount, "max-occurrences", 0, "stop after this many occurrences")
	cmd.Flags().StringVar(&endStr, "until", "", "recurrence end date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func obligationsListCmd(kind model.ObligationKind) *cobra.Command {
	var statusStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List obligations with derived status and totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.ObligationFilter{Kind: &kind}
			// Overdue is derived, not stored: fetch pending and filter below.
			switch statusStr {
			case "":
			case "overdue", "pending":
				pending := model.StatusPending
				filter.Status = &pending
			case "settled":
				settled := model.StatusSettled
				filter.Status = &settled
			default:
				return fmt.Errorf("invalid status %q (want pending, settled, overdue)", statusStr)
			}

			obligations, err := store.ListObligations(cmd.Context(), filter)
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDESCRIPTION\tAMOUNT\tDUE\tSTATUS")
			for i := range obligations {
				derived := query.DeriveStatus(&obligations[i], now)
				if statusStr == "overdue" && derived != model.StatusOverdue {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					obligations[i].ID,
					obligations[i].Description,
					obligations[i].Amount,
					obligations[i].DueDate.Format(dateLayout),
					derived)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			totals := query.AggregateTotals(obligations, now)
			fmt.Printf("\npending: %s (%d)  overdue: %s (%d)  settled: %s (%d)\n",
				totals.Pending, totals.PendingCount,
				totals.Overdue, totals.OverdueCount,
				totals.Settled, totals.SettledCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusStr, "status", "", "filter by status (pending, settled, overdue)")
	return cmd
}

func obligationsSettleCmd(kind model.ObligationKind) *cobra.Command {
	var accountID string

	verb := "paid"
	if kind == model.KindReceivable {
		verb = "received"
	}

	cmd := &cobra.Command{
		Use:   "settle <obligation-id>",
		Short: fmt.Sprintf("Mark an obligation %s, writing the ledger entry and balance change", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			coordinator := settlement.New(store)
			result, err := coordinator.Settle(cmd.Context(), args[0], accountID)
			if errors.Is(err, common.ErrAccountRequired) {
				return fmt.Errorf("obligation has no linked account; retry with --account <id>")
			}
			if err != nil {
				return err
			}

			fmt.Println(result.Message)
			if result.NextOccurrenceID != "" {
				fmt.Printf("Next occurrence created: %s\n", result.NextOccurrenceID)
			}
			if result.Warning != "" {
				fmt.Printf("Warning: %s\n", result.Warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account to settle against (required if the obligation has none)")
	return cmd
}

func obligationsUnsettleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsettle <obligation-id>",
		Short: "Revert a settled obligation to pending, removing its ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			coordinator := settlement.New(store)
			result, err := coordinator.Unsettle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(result.Message)
			return nil
		},
	}
}

func obligationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <obligation-id>",
		Short: "Delete an obligation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteObligation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted obligation %s\n", args[0])
			return nil
		},
	}
}
