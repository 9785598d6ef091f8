package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/config"
	"github.com/eris-dev/eris/internal/store"
)

const dateLayout = "2006-01-02"

func configPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil {
		return f.Value.String()
	}
	return "eris.yaml"
}

// openLedger loads the configuration and opens the SQLite ledger store.
// The caller owns closing the store.
func openLedger(cmd *cobra.Command) (*config.Config, *store.SQL, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// askConfirm prints a summary and reads a yes/no answer from stdin.
func askConfirm(summary string) bool {
	fmt.Println(summary)
	fmt.Print("proceed? (y/n) ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "y"
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q (want YYYY-MM-DD): %w", value, err)
	}
	return date, nil
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
