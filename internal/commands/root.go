// Package commands wires the CLI surface. All financial logic lives in
// the accounting and banking packages; commands only parse flags, load
// the store and render output.
package commands

import (
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/klog"

	"github.com/eris-dev/eris/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("logtostderr", "true")

	rootCmd := &cobra.Command{
		Use:     "eris",
		Short:   "Membership dues tracking",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "eris.yaml", "configuration file")

	rootCmd.AddCommand(
		newInitCommand(),
		newMembersCommand(),
		newAccrueCommand(),
		newBankCommand(),
		newTxCommand(),
	)

	return rootCmd
}
