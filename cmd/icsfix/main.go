package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appLog "icsfix/internal/log"
)

const version = "0.3.0"

// rootFlags holds flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "icsfix",
		Short:         "Repair and reshape iCalendar (.ics) files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if flags.logLevel != "" {
				appLog.SetLevel(appLog.ParseLevel(flags.logLevel))
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "/etc/icsfix/config.yaml", "Path to config file (serve)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, error")

	root.AddCommand(
		newGenerateCmd(),
		newInspectCmd(),
		newServeCmd(&flags),
	)
	return root
}

// readInput reads a file argument, or stdin when the argument is missing or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
