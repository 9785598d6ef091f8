package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/accounting"
	"github.com/eris-dev/eris/internal/store"
)

func newTxCommand() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect and correct the transaction ledger",
	}
	txCmd.AddCommand(
		newTxListCommand(),
		newTxUndoCommand(),
		newTxAdjustCommand(),
	)
	return txCmd
}

func newTxListCommand() *cobra.Command {
	var memberID int64
	var name, sinceStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			filter := store.TransactionFilter{MemberID: memberID}
			if name != "" {
				m, err := st.MemberByName(ctx, name)
				if err != nil {
					return err
				}
				filter.MemberID = m.ID
			}
			if sinceStr != "" {
				since, err := parseDate(sinceStr)
				if err != nil {
					return err
				}
				filter.Since = since
			}

			txs, err := st.Transactions(ctx, filter)
			if err != nil {
				return err
			}
			for _, tx := range txs {
				fmt.Printf("%5d  %s  %4d  %10s  %-24s  %s\n",
					tx.ID, tx.Date.Format(dateLayout), tx.MemberID,
					tx.Amount.StringFixed(2), tx.AccountName, tx.Description)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "filter by member id")
	cmd.Flags().StringVar(&name, "name", "", "filter by exact member name")
	cmd.Flags().StringVar(&sinceStr, "since", "", "only transactions on or after YYYY-MM-DD")
	cmd.MarkFlagsMutuallyExclusive("member", "name")

	return cmd
}

func newTxUndoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <id>",
		Short: "Reverse a transaction with a compensating entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q: %w", args[0], err)
			}

			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := accounting.NewService(st, cfg.Currency)
			err = svc.Undo(cmd.Context(), txID, askConfirm)
			if errors.Is(err, accounting.ErrAborted) {
				fmt.Println("abort")
				return nil
			}
			return err
		},
	}

	return cmd
}

func newTxAdjustCommand() *cobra.Command {
	var memberID int64
	var amount, comment string

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Set a member's account to an exact amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := accounting.NewService(st, cfg.Currency)
			err = svc.Adjust(cmd.Context(), memberID, target, comment, askConfirm)
			if errors.Is(err, accounting.ErrAborted) {
				fmt.Println("abort")
				return nil
			}
			return err
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&amount, "amount", "", "target account value (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&comment, "comment", "", "reason recorded in the ledger entry")

	return cmd
}
