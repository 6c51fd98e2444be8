package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"appdeck-core/internal/application/service"
)

func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func renderSnapshot(w io.Writer, state service.AggregatorState) {
	snap := state.Snapshot

	if info := snap.Info; info != nil {
		fmt.Fprintf(w, "%s  %s\n", color.New(color.Bold).Sprint(info.FullName), info.HTMLURL)
		if info.Description != nil && *info.Description != "" {
			fmt.Fprintln(w, *info.Description)
		}

		table := newTable(w, []string{"Default branch", "Stars", "Forks", "Open issues", "Last push"})
		table.Append([]string{
			info.DefaultBranch,
			strconv.Itoa(info.StargazersCount),
			strconv.Itoa(info.ForksCount),
			strconv.Itoa(info.OpenIssuesCount),
			formatDate(info.PushedAt),
		})
		table.Render()
	} else {
		fmt.Fprintln(w, color.YellowString("Repository metadata unavailable"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.CyanString("Recent commits"))
	if len(snap.Commits) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		table := newTable(w, []string{"SHA", "Author", "Date", "Message"})
		for _, c := range snap.Commits {
			table.Append([]string{shortSHA(c.SHA), c.AuthorName, formatDate(c.AuthorDate), firstLine(c.Message)})
		}
		table.Render()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.CyanString("Recent releases"))
	if len(snap.Releases) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		table := newTable(w, []string{"Tag", "Name", "Published"})
		for _, r := range snap.Releases {
			table.Append([]string{r.TagName, r.Name, formatDate(r.PublishedAt)})
		}
		table.Render()
	}

	if state.Error != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.RedString("Error: %s", state.Error))
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
