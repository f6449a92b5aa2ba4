package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"licensing/internal/admin"
	candidateservice "licensing/internal/candidate/service"
)

func renderStats(w io.Writer, resp admin.DashboardResponse) {
	color.New(color.FgCyan).Fprintln(w, "\n=== Licensing Dashboard ===")
	fmt.Fprintf(w, "Generated %s\n", resp.GeneratedAt.Format("02 Jan 2006 15:04 MST"))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Figure", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Candidates", strconv.Itoa(resp.Candidates)})
	table.Append([]string{"Pending exam schedules", strconv.Itoa(resp.PendingSchedules)})
	table.Append([]string{"Pending payments", strconv.Itoa(resp.PendingPayments)})
	table.Append([]string{"Active licenses", strconv.Itoa(resp.ActiveLicenses)})
	table.Append([]string{"Theory pass rate", passRate(resp.TheoryPassPercent)})
	table.Append([]string{"Practical pass rate", passRate(resp.PracticalPassPercent)})
	table.Render()

	if resp.PendingPayments > 0 || resp.PendingSchedules > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d payments and %d exam bookings await review\n",
			resp.PendingPayments, resp.PendingSchedules)
	}
}

func passRate(p float64) string {
	s := strconv.FormatFloat(p, 'f', 1, 64) + "%"
	switch {
	case p >= 70:
		return color.GreenString(s)
	case p >= 40:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func renderImport(w io.Writer, report candidateservice.ImportReport) {
	color.New(color.FgCyan).Fprintln(w, "\nLegacy import")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Imported", "Skipped"})
	table.Append([]string{strconv.Itoa(report.Imported), strconv.Itoa(report.Skipped)})
	table.Render()

	if len(report.Errors) == 0 {
		color.New(color.FgGreen).Fprintln(w, "Import completed successfully!")
		return
	}
	color.New(color.FgYellow).Fprintln(w, "Skipped records:")
	for _, e := range report.Errors {
		color.New(color.FgRed).Fprintln(w, "  "+e)
	}
}
