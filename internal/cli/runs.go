package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"NewsRelay/internal/domain"
)

func newRunsCommand(open opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the most recent invocations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			logs, err := rt.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRuns(cmd.OutOrStdout(), logs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

func renderRuns(w io.Writer, logs []domain.RunLog) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)
	table.Header([]string{"Started", "Run ID", "Exit reason", "Source", "Article", "Duration ms"})

	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			l.StartedAt.UTC().Format(time.RFC3339),
			l.RunID,
			string(l.ExitReason),
			l.SourceUsed,
			l.PostedArticleID,
			strconv.FormatInt(l.DurationMs, 10),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
