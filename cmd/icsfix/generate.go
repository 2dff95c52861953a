package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"icsfix/internal/ics"
	appLog "icsfix/internal/log"
	"icsfix/internal/model"
)

type generateFlags struct {
	start       string
	timezone    string
	weekly      bool
	count       int
	out         string
	verify      bool
	diagnostics bool
}

func newGenerateCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [FILE|-]",
		Short: "Normalize, shift and optionally expand an ICS document",
		Example: `  icsfix generate meeting.ics --start 2024-06-01T08:00
  icsfix generate meeting.ics --weekly --count 6 --out ./out/
  cat meeting.ics | icsfix generate --start "next monday 9am" --out -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.start, "start", "", "New earliest start, e.g. 2024-06-01T08:00 or \"next monday 9am\"")
	f.StringVar(&flags.timezone, "tz", "", "IANA zone for relative --start phrases (default: local)")
	f.BoolVar(&flags.weekly, "weekly", false, "Expand events into a weekly series")
	f.IntVar(&flags.count, "count", 1, "Number of weekly occurrences (with --weekly)")
	f.StringVarP(&flags.out, "out", "o", "", "Output file or directory; \"-\" for stdout (default: derived filename)")
	f.BoolVar(&flags.verify, "verify", false, "Re-parse the output and fail on duplicate UIDs")
	f.BoolVar(&flags.diagnostics, "diagnostics", false, "Print skipped and synthesized fields to stderr")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, flags generateFlags) error {
	if flags.weekly && flags.count > model.MaxWeeklyCount {
		return fmt.Errorf("--count must be at most %d, got %d", model.MaxWeeklyCount, flags.count)
	}

	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	loc := time.Local
	if flags.timezone != "" {
		if loc, err = time.LoadLocation(flags.timezone); err != nil {
			return fmt.Errorf("invalid --tz: %w", err)
		}
	}
	start, err := ics.AnchorOption(flags.start, time.Now().In(loc))
	if err != nil {
		return err
	}

	res, err := ics.Process(raw, model.Options{
		StartDate:   start,
		Weekly:      flags.weekly,
		WeeklyCount: flags.count,
	})
	if err != nil {
		return err
	}

	if flags.verify {
		if err := verify(res); err != nil {
			return err
		}
	}

	dest, err := writeResult(cmd.OutOrStdout(), flags.out, res)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if flags.diagnostics {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(stderr, "block %d %s: %s\n", d.Block, d.Field, d.Message)
		}
	}
	if dest != "" {
		fmt.Fprintf(stderr, "%s -> %s\n", res.Summary, dest)
	}
	appLog.Debug("generate done", "summary", res.Summary, "filename", res.Filename, "diagnostics", len(res.Diagnostics))
	return nil
}

func verify(res model.Result) error {
	rep, err := ics.Inspect(res.ICSContent)
	if err != nil {
		return fmt.Errorf("verify: output does not parse: %w", err)
	}
	if len(rep.DuplicateUIDs) > 0 {
		return fmt.Errorf("verify: duplicate UIDs %v", rep.DuplicateUIDs)
	}
	// Fallback output carries no VEVENT markers for a parser to count.
	if res.Fallback {
		return nil
	}
	if want := res.Blocks * res.Occurrences; len(rep.Events) != want {
		return fmt.Errorf("verify: expected %d events, parsed %d", want, len(rep.Events))
	}
	return nil
}

// writeResult writes the document to stdout ("-"), into a directory, or to
// an explicit path, and returns the destination path (empty for stdout).
func writeResult(stdout io.Writer, out string, res model.Result) (string, error) {
	if out == "-" {
		_, err := io.WriteString(stdout, res.ICSContent)
		return "", err
	}

	dest := res.Filename
	switch {
	case out == "":
	case strings.HasSuffix(out, string(os.PathSeparator)):
		if err := os.MkdirAll(out, 0o755); err != nil {
			return "", err
		}
		dest = filepath.Join(out, res.Filename)
	default:
		info, err := os.Stat(out)
		switch {
		case err == nil && info.IsDir():
			dest = filepath.Join(out, res.Filename)
		case err == nil, errors.Is(err, os.ErrNotExist):
			dest = out
		default:
			return "", err
		}
	}

	if err := os.WriteFile(dest, []byte(res.ICSContent), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}
