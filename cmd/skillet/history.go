package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/history"
)

// minIDPrefix is the shortest argument to show that is looked up as a task ID.
const minIDPrefix = 4

// sessionCommand handles the chat commands that inspect the session's
// history. It reports whether input was one of them.
func sessionCommand(ctx context.Context, w io.Writer, store *history.Store, input string) (bool, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 || store == nil {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "history":
		if len(fields) > 1 {
			return false, nil
		}
		records, err := store.List(ctx, history.ListOptions{})
		if err != nil {
			return true, err
		}
		return true, renderHistory(w, records)
	case "show":
		if len(fields) != 2 || len(fields[1]) < minIDPrefix {
			return false, nil
		}
		record, err := store.Get(ctx, fields[1])
		if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrAmbiguous) {
			// Not a single ID, so treat the line as a task.
			return false, nil
		}
		if err != nil {
			return true, err
		}
		showRecord(w, record)
		return true, nil
	}
	return false, nil
}

func renderHistory(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No tasks yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSKILL\tSTATUS\tATTEMPTS\tTASK")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.TimeOnly), orNone(r.Skill), r.Status,
			len(r.Attempts), truncate(firstLine(r.Task), 50))
	}
	return tw.Flush()
}

func showRecord(w io.Writer, r history.Record) {
	fmt.Fprintf(w, "ID:       %s\n", r.ID)
	fmt.Fprintf(w, "Started:  %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Skill:    %s\n", orNone(r.Skill))
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	fmt.Fprintf(w, "\nTask:\n%s\n", r.Task)

	// Later attempts are shown as a diff against the last code that ran.
	var previous string
	for _, a := range r.Attempts {
		fmt.Fprintf(w, "\n--- Attempt %d", a.Number)
		if a.Failure != "" {
			fmt.Fprintf(w, " (%s)", a.Failure)
		}
		fmt.Fprintln(w, " ---")
		switch {
		case a.Code == "":
		case previous == "":
			fmt.Fprintf(w, "%s\n", strings.TrimRight(a.Code, "\n"))
		default:
			label := fmt.Sprintf("attempt %d", a.Number)
			if diff := udiff.Unified("previous", label, withNewline(previous), withNewline(a.Code)); diff != "" {
				fmt.Fprint(w, diff)
			} else {
				fmt.Fprintln(w, "(code unchanged)")
			}
		}
		if a.Code != "" {
			previous = a.Code
		}
		if a.Execution != nil {
			fmt.Fprintf(w, "exit code %d in %s\n", a.Execution.ExitCode, a.Execution.Duration.Round(time.Millisecond))
		}
		if a.Error != "" {
			fmt.Fprintf(w, "error: %s\n", a.Error)
		}
	}

	fmt.Fprintf(w, "\nResult:\n%s\n", r.Result)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
