package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/smartexpense/smartexpense/internal/reports"
)

// WriteSummaryCSV writes the category totals followed by the monthly totals.
func WriteSummaryCSV(w io.Writer, summary reports.Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Category", "Amount"}); err != nil {
		return err
	}
	for _, c := range summary.Categories {
		if err := writer.Write([]string{c.Category, formatFloat(c.Amount)}); err != nil {
			return err
		}
	}
	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"Month", "Amount"}); err != nil {
		return err
	}
	for _, m := range summary.Months {
		if err := writer.Write([]string{m.Month, formatFloat(m.Amount)}); err != nil {
			return err
		}
	}
	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"Total", formatFloat(summary.Total)}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Count", strconv.Itoa(summary.Count)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
