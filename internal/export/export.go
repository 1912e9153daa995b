// Package export renders quote-history downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/stocktrack/backend/internal/models"
)

// WriteCSV streams points as a CSV document with a header row.
func WriteCSV(w io.Writer, points []models.QuotePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ticker", "price", "change", "change_percent", "volume", "timestamp"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		rec := []string{
			p.Ticker,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.FormatFloat(p.Change, 'f', 2, 64),
			strconv.FormatFloat(p.ChangePercent, 'f', 2, 64),
			strconv.FormatFloat(p.Volume, 'f', 0, 64),
			p.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders points as a simple table, one page section per run.
func WritePDF(w io.Writer, points []models.QuotePoint, days int) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quote History Export", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Quote History - Last %d Days", days))
	pdf.Ln(12)

	headers := []string{"Ticker", "Price", "Change", "Change %", "Volume", "Timestamp"}
	widths := []float64{20, 25, 22, 22, 28, 63}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, p := range points {
		cells := []string{
			p.Ticker,
			fmt.Sprintf("%.2f", p.Price),
			fmt.Sprintf("%+.2f", p.Change),
			fmt.Sprintf("%+.2f%%", p.ChangePercent),
			fmt.Sprintf("%.0f", p.Volume),
			p.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(points) == 0 {
		pdf.Cell(0, 10, "No data recorded in the selected range.")
	}

	return pdf.Output(w)
}
