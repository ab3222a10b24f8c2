package report

import (
	"fmt"
	"io"
	"time"

	"erpharvest/services/harvest/batch"
	"erpharvest/services/harvest/metadata"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timeRound = time.Second

// Summary renders the end-of-run banner.
func Summary(out io.Writer, result *batch.Result, downloads metadata.DownloadStats) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Harvest of %ss finished in %s",
		result.Kind.String(),
		result.FinishedAt.Sub(result.StartedAt).Round(timeRound),
	)
	t.AppendHeader(table.Row{"", "Count"})
	t.AppendRows([]table.Row{
		{"Total", result.Stats.Total},
		{"Succeeded", result.Stats.Succeeded},
		{"Failed", result.Stats.Failed},
		{"Skipped", result.Stats.Skipped},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Errors", len(result.Report.Errors)},
		{"Warnings", len(result.Report.Warnings)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Resumes downloaded", downloads.Successful},
		{"Resumes failed", downloads.Failed},
		{"Resumes skipped", downloads.Skipped},
		{"Resume size", fmt.Sprintf("%.1f MB", float64(downloads.Bytes)/(1024*1024))},
	})
	if attempted := downloads.Successful + downloads.Failed; attempted > 0 {
		t.AppendRow(table.Row{
			"Download success rate",
			fmt.Sprintf("%.0f%%", float64(downloads.Successful)/float64(attempted)*100),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if rec := result.Report.Recommendation(); rec != "" {
		fmt.Fprintf(out, "\n%s\n", rec)
	}
}
