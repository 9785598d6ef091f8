package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

func newMembersCommand() *cobra.Command {
	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "Manage member records",
	}
	membersCmd.AddCommand(
		newMembersListCommand(),
		newMembersAddCommand(),
		newMembersImportCommand(),
		newMembersSetFeeCommand(),
		newMembersSetIntervalCommand(),
		newMembersRenameCommand(),
		newMembersSetEmailCommand(),
		newMembersSetNotesCommand(),
		newMembersEndCommand(),
	)
	return membersCmd
}

func newMembersListCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			var members []model.Member
			if name != "" {
				members, err = st.SearchMembers(ctx, name)
			} else {
				members, err = st.Members(ctx)
			}
			if err != nil {
				return err
			}

			now := today()
			fmt.Printf("%4s  %-24s  %-30s  %10s  %-12s  %8s  %4s  %s\n",
				"ID", "Name", "Email", "Account", "Last paid", "Fee", "Int", "Ended")
			for _, m := range members {
				ended := ""
				if m.Inactive(now) {
					ended = "X"
				} else if m.Ended() {
					ended = m.MembershipEnd.Format(dateLayout)
				}
				fmt.Printf("%4d  %-24s  %-30s  %10s  %-12s  %8s  %4d  %s\n",
					m.ID, m.Name, m.Email, m.Account.StringFixed(2),
					m.LastPayment.Format(dateLayout), m.Fee.StringFixed(2), m.Interval, ended)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "filter by name substring")

	return cmd
}

func newMembersAddCommand() *cobra.Command {
	var name, email, notes, startStr, feeStr string
	var interval int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			start := today()
			if startStr != "" {
				if start, err = parseDate(startStr); err != nil {
					return err
				}
			}

			fee, err := cfg.DefaultFee()
			if err != nil {
				return err
			}
			if feeStr != "" {
				if fee, err = decimal.NewFromString(feeStr); err != nil {
					return fmt.Errorf("parsing fee %q: %w", feeStr, err)
				}
			}
			if interval == 0 {
				interval = cfg.Defaults.Interval
			}

			member := &model.Member{
				Name:            name,
				Email:           email,
				Notes:           notes,
				Interval:        interval,
				Fee:             fee,
				Account:         fee.Neg(), // the first month is owed immediately
				MembershipStart: start,
				LastPayment:     start,
			}

			summary := fmt.Sprintf("add member %s <%s>, start %s, fee %s %s every %d month(s)",
				member.Name, member.Email, start.Format(dateLayout), fee.StringFixed(2), cfg.Currency, interval)
			if !askConfirm(summary) {
				fmt.Println("abort")
				return nil
			}

			added, err := st.AddMember(cmd.Context(), member)
			if err != nil {
				return err
			}
			fmt.Printf("Added member %d: %s <%s>\n", added.ID, added.Name, added.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "member name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	cmd.Flags().StringVar(&startStr, "start", "", "membership start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&feeStr, "fee", "", "membership fee (default from config)")
	cmd.Flags().IntVar(&interval, "interval", 0, "billing interval in months (default from config)")

	return cmd
}

// memberImport is one record of a members JSON dump.
type memberImport struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Notes           string `json:"notes"`
	Fee             string `json:"fee"`
	MembershipStart string `json:"membership_start"`
}

func newMembersImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import members from a JSON dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading members dump: %w", err)
			}
			var records []memberImport
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("parsing members dump: %w", err)
			}

			ctx := cmd.Context()
			for _, rec := range records {
				if _, err := st.MemberByName(ctx, rec.Name); err == nil {
					fmt.Printf("Skipping %s <%s>, already present\n", rec.Name, rec.Email)
					continue
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}

				fee, err := cfg.DefaultFee()
				if err != nil {
					return err
				}
				if rec.Fee != "" {
					if fee, err = decimal.NewFromString(rec.Fee); err != nil {
						return fmt.Errorf("parsing fee for %s: %w", rec.Name, err)
					}
				}

				start := today()
				if rec.MembershipStart != "" {
					if start, err = parseDate(rec.MembershipStart); err != nil {
						return err
					}
				}

				added, err := st.AddMember(ctx, &model.Member{
					Name:            rec.Name,
					Email:           rec.Email,
					Notes:           rec.Notes,
					Interval:        cfg.Defaults.Interval,
					Fee:             fee,
					Account:         fee.Neg(),
					MembershipStart: start,
					LastPayment:     start,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d: %s <%s>\n", added.ID, added.Name, added.Email)
			}
			return nil
		},
	}

	return cmd
}

func newMembersSetFeeCommand() *cobra.Command {
	var memberID int64
	var amount string

	cmd := &cobra.Command{
		Use:   "set-fee",
		Short: "Set the membership fee of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			fee, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing fee %q: %w", amount, err)
			}
			return st.SetFee(cmd.Context(), memberID, fee)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&amount, "amount", "", "fee amount, e.g. 23.50 (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newMembersSetIntervalCommand() *cobra.Command {
	var memberID int64
	var months int

	cmd := &cobra.Command{
		Use:   "set-interval",
		Short: "Set the billing interval of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetInterval(cmd.Context(), memberID, months)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().IntVar(&months, "months", 1, "billing interval in months")

	return cmd
}

func newMembersRenameCommand() *cobra.Command {
	var memberID int64
	var name string

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Change the name of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetName(cmd.Context(), memberID, name)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&name, "name", "", "new name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newMembersSetEmailCommand() *cobra.Command {
	var memberID int64
	var email string

	cmd := &cobra.Command{
		Use:   "set-email",
		Short: "Change the email address of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetEmail(cmd.Context(), memberID, email)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&email, "email", "", "new email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newMembersSetNotesCommand() *cobra.Command {
	var memberID int64
	var notes string

	cmd := &cobra.Command{
		Use:   "set-notes",
		Short: "Set the notes of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetNotes(cmd.Context(), memberID, notes)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&notes, "notes", "", "notes text")

	return cmd
}

func newMembersEndCommand() *cobra.Command {
	var memberID int64
	var dateStr string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "End a membership",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			end := today()
			if dateStr != "" {
				if end, err = parseDate(dateStr); err != nil {
					return err
				}
			}
			// Ending stops accrual for good, so make the operator look twice.
			m, err := st.Member(cmd.Context(), memberID)
			if err != nil {
				return err
			}
			if !askConfirm(fmt.Sprintf("end membership of %s (%d) on %s", m.Name, m.ID, end.Format(dateLayout))) {
				fmt.Println("abort")
				return nil
			}
			return st.EndMembership(cmd.Context(), memberID, end)
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")
	cmd.Flags().StringVar(&dateStr, "date", "", "end date YYYY-MM-DD (default today)")

	return cmd
}
