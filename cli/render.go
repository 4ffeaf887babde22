package cli

import (
	"fmt"
	"io"

	"macroclock/models"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okText      = color.New(color.FgGreen).SprintFunc()
	failText    = color.New(color.FgRed).SprintFunc()
	pendingText = color.New(color.FgYellow).SprintFunc()
)

// renderTable writes rows under header as a bordered table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	table.Header(cols...)
	if err := table.Bulk(rows); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

// deliveryLine is the one-line summary of a delivery, colored by result.
func deliveryLine(d *models.DeliveryStatus) string {
	switch {
	case !d.Completed:
		return pendingText(fmt.Sprintf("… Delivery pending (attempt %d)", d.Attempts))
	case d.Acked:
		return okText(fmt.Sprintf("✓ Delivered to watchface (attempts: %d)", d.Attempts))
	default:
		return failText(fmt.Sprintf("✗ Not delivered: %s (attempts: %d)", d.Reason, d.Attempts))
	}
}

func yesNo(v bool) string {
	if v {
		return okText("yes")
	}
	return failText("no")
}
