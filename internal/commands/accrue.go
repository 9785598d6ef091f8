package commands

import (
	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/accounting"
)

func newAccrueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "Charge membership fees for elapsed calendar months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := accounting.NewService(st, cfg.Currency)
			return svc.RunAccrual(cmd.Context())
		},
	}

	return cmd
}
