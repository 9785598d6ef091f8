package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/banking"
	"github.com/eris-dev/eris/internal/importer"
	"github.com/eris-dev/eris/internal/model"
)

func newBankCommand() *cobra.Command {
	bankCmd := &cobra.Command{
		Use:   "bank",
		Short: "Import bank statements and manage import rules",
	}
	bankCmd.AddCommand(
		newBankImportCommand(),
		newBankRulesCommand(),
		newBankAssignCommand(),
		newBankAssignSplitCommand(),
	)
	return bankCmd
}

func newBankImportCommand() *cobra.Command {
	var format, encoding string
	var force bool

	cmd := &cobra.Command{
		Use:   "import <statement>",
		Short: "Import a bank statement and post matched payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if encoding == "" {
				encoding = cfg.Import.Encoding
			}
			parser := importer.DefaultRegistry(encoding).Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q, supported: %s",
					format, strings.Join(importer.DefaultRegistry(encoding).Formats(), ", "))
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			candidates, err := parser.Parse(f)
			if err != nil {
				return fmt.Errorf("parsing statement: %w", err)
			}

			if force && !askConfirm("import with --force posts payments that fail validation") {
				fmt.Println("abort")
				return nil
			}

			engine := banking.NewEngine(st, cfg.Currency)
			report, err := engine.ImportTransactions(cmd.Context(), candidates, force)
			if err != nil {
				return err
			}

			fmt.Printf("Posted %d of %d transactions\n", report.Posted, len(candidates))
			for _, r := range report.Rejected {
				fmt.Printf("Rejected: %s\n", r.Reason)
			}
			if len(report.Unresolved) > 0 {
				fmt.Println("Could not import the following transactions.")
				fmt.Println("Consider creating import rules for:")
				for _, c := range report.Unresolved {
					fmt.Printf("  %s: %s %s\n", c.AccountName, c.Amount.StringFixed(2), cfg.Currency)
					fmt.Printf("    IBAN %s (hash %s)\n", c.IBAN, c.IBANHash)
					fmt.Printf("    %s\n", c.Description)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "deutsche-bank", "statement format")
	cmd.Flags().StringVar(&encoding, "encoding", "", "statement character encoding (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "post payments even when validation fails")

	return cmd
}

func newBankRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List import rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			rules, err := st.ImportRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, rule := range rules {
				switch rule.Kind {
				case model.RuleSplit:
					parts := make([]string, 0, len(rule.Splits))
					for _, share := range rule.Splits {
						parts = append(parts, fmt.Sprintf("%d=%s", share.MemberID, share.Amount.StringFixed(2)))
					}
					fmt.Printf("%s  split  %s, rest to %d\n", rule.IBANHash, strings.Join(parts, " "), rule.MemberID)
				default:
					fmt.Printf("%s  direct  member %d\n", rule.IBANHash, rule.MemberID)
				}
			}
			return nil
		},
	}

	return cmd
}

func newBankAssignCommand() *cobra.Command {
	var hash string
	var memberID int64

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Map a bank identity hash to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			// The member must exist before the rule points at it.
			m, err := st.Member(cmd.Context(), memberID)
			if err != nil {
				return err
			}
			if _, err := st.AddImportRule(cmd.Context(), &model.ImportRule{
				IBANHash: hash,
				MemberID: m.ID,
				Kind:     model.RuleDirect,
			}); err != nil {
				return err
			}
			fmt.Printf("Assigned %s to %s (%d)\n", hash, m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "bank identity hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func newBankAssignSplitCommand() *cobra.Command {
	var hash string
	var fallback int64
	var shares []string

	cmd := &cobra.Command{
		Use:   "assign-split",
		Short: "Map a bank identity hash to fixed shares across members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			splits, err := parseShares(shares)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			for _, share := range splits {
				if _, err := st.Member(ctx, share.MemberID); err != nil {
					return fmt.Errorf("share member %d: %w", share.MemberID, err)
				}
			}
			if fallback == 0 {
				fallback = splits[len(splits)-1].MemberID
			}
			if _, err := st.Member(ctx, fallback); err != nil {
				return fmt.Errorf("fallback member %d: %w", fallback, err)
			}

			if _, err := st.AddImportRule(ctx, &model.ImportRule{
				IBANHash: hash,
				MemberID: fallback,
				Kind:     model.RuleSplit,
				Splits:   splits,
			}); err != nil {
				return err
			}
			fmt.Printf("Assigned %s to %d share(s), rest to member %d\n", hash, len(splits), fallback)
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "bank identity hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	cmd.Flags().StringArrayVar(&shares, "share", nil, "fixed share as member-id=amount, repeatable (required)")
	_ = cmd.MarkFlagRequired("share")
	cmd.Flags().Int64Var(&fallback, "fallback", 0, "member receiving the remainder (default last share's member)")

	return cmd
}

func parseShares(values []string) ([]model.SplitShare, error) {
	splits := make([]model.SplitShare, 0, len(values))
	for _, v := range values {
		id, amount, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid share %q (want member-id=amount)", v)
		}
		memberID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid share member id %q: %w", id, err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid share amount %q: %w", amount, err)
		}
		splits = append(splits, model.SplitShare{MemberID: memberID, Amount: value})
	}
	return splits, nil
}
