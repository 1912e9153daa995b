package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stocktrack/backend/internal/models"
)

func samplePoints() []models.QuotePoint {
	ts := time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC)
	return []models.QuotePoint{
		{Ticker: "AAPL", Price: 190.12, Change: 1.5, ChangePercent: 0.8, Volume: 1200000, Timestamp: ts},
		{Ticker: "MSFT", Price: 410.50, Change: -2.25, ChangePercent: -0.55, Volume: 800000, Timestamp: ts.Add(time.Minute)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samplePoints()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "ticker" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "AAPL" || records[1][1] != "190.12" {
		t.Fatalf("unexpected first row: %v", records[1])
	}
	if records[2][2] != "-2.25" {
		t.Fatalf("negative change lost: %v", records[2])
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "ticker,") {
		t.Fatalf("empty export should still carry a header, got %q", buf.String())
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, samplePoints(), 7); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output does not look like a PDF")
	}
}

func TestWritePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, nil, 30); err != nil {
		t.Fatalf("WritePDF empty: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty export produced no document")
	}
}
