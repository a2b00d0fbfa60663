package invoice

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// csvHeader is the fixed column order of the output table
var csvHeader = []string{
	"invoice_file",
	"invoice_number",
	"date",
	"seller",
	"client",
	"category",
	"confidence",
	"items_found",
	"reasoning",
	"total_amount",
}

// CSVWriter appends extraction records to a durable CSV table, unique by
// invoice_file. Every append is flushed and synced so the table stays
// parseable if the process dies mid-run.
type CSVWriter struct {
	file *os.File
	w    *csv.Writer
	keys map[string]struct{}
}

// NewCSVWriter opens the output table at path, reading any rows a previous
// run already wrote so appends stay unique. The header is written only when
// the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	keys := make(map[string]struct{})

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading output table: %w", err)
	}
	if len(existing) > 0 {
		rows, err := csv.NewReader(strings.NewReader(string(existing))).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parsing existing output table: %w", err)
		}
		for i, row := range rows {
			if i == 0 || len(row) == 0 {
				continue
			}
			keys[row[0]] = struct{}{}
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening output table: %w", err)
	}

	w := &CSVWriter{
		file: file,
		w:    csv.NewWriter(file),
		keys: keys,
	}

	if len(existing) == 0 {
		if err := w.writeRow(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	return w, nil
}

// Append writes one record to the table. Appending a record whose
// invoice_file is already present is a no-op, keeping the table idempotent
// under retry and resume.
func (w *CSVWriter) Append(record Record) error {
	if _, ok := w.keys[record.InvoiceFile]; ok {
		return nil
	}

	row := []string{
		record.InvoiceFile,
		record.InvoiceNumber,
		record.Date,
		record.Seller,
		record.Client,
		record.Category,
		record.Confidence,
		strings.Join(record.ItemsFound, ", "),
		record.Reasoning,
		strconv.FormatFloat(record.TotalAmount, 'f', 2, 64),
	}
	if err := w.writeRow(row); err != nil {
		return fmt.Errorf("appending record for %s: %w", record.InvoiceFile, err)
	}

	w.keys[record.InvoiceFile] = struct{}{}
	return nil
}

// Has reports whether a record for the given invoice file was already written
func (w *CSVWriter) Has(invoiceFile string) bool {
	_, ok := w.keys[invoiceFile]
	return ok
}

// writeRow writes, flushes, and syncs a single row so each append lands on
// disk as a unit
func (w *CSVWriter) writeRow(row []string) error {
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the underlying file
func (w *CSVWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
