package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icsfix/internal/ics"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [FILE|-]",
		Short: "List the events of an ICS document and flag duplicate UIDs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			rep, err := ics.Inspect(raw)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d event(s)\n", len(rep.Events))
			for i, ev := range rep.Events {
				line := fmt.Sprintf("%3d  %s  %s  uid=%s", i, stamp(ev.Start), ev.Summary, ev.UID)
				if ev.HasRule {
					line += "  [RRULE]"
				}
				fmt.Fprintln(w, line)
			}
			if rep.MissingUIDs > 0 {
				fmt.Fprintf(w, "missing UID: %d event(s)\n", rep.MissingUIDs)
			}
			if len(rep.DuplicateUIDs) > 0 {
				fmt.Fprintf(w, "duplicate UIDs:\n%s\n", indent(fmt.Sprint(rep.DuplicateUIDs)))
			}
			return nil
		},
	}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "(no start)      "
	}
	return t.Format("2006-01-02 15:04")
}
