package ddns

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// WriteRecordTable renders records as a column-aligned table, one row per record in the given order.
func WriteRecordTable(w io.Writer, records []Record) error {
	headers := []string{"ID", "NAME", "TYPE", "CONTENT", "MODE"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.ID, r.Name, string(r.Type), r.Content, r.ServiceMode.String()})
	}

	// columns are sized to their longest cell plus padding;
	// a cell exactly as wide as its column is cut off with an ellipsis
	widths := make([]int, len(headers))
	for _, row := range append([][]string{headers}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1).Width(widths[col] + 2)
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
