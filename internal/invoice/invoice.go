package invoice

import (
	"time"

	"github.com/zombor/invoice-batch/internal/scanning"
)

// Status is the processing state of one invoice image
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether a status is final. Terminal items are skipped on
// resume and never demoted.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Entry is the checkpoint value recorded for one invoice file
type Entry struct {
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is the finalized extraction result for one invoice, keyed by the
// source filename. Immutable once written to the output table.
type Record struct {
	InvoiceFile   string
	InvoiceNumber string
	Date          string
	Seller        string
	Client        string
	Category      string
	Confidence    string
	ItemsFound    []string
	Reasoning     string
	TotalAmount   float64
}

// categories is the fixed expense taxonomy. "Other" is the catch-all for
// extractions that name anything outside the list.
var categories = []string{
	"Office Supplies",
	"Technology/IT Equipment",
	"Professional Services",
	"Marketing/Advertising",
	"Travel & Accommodation",
	"Utilities",
	"Maintenance & Repairs",
	"Food & Beverages",
	"Furnitures",
	"Shoes & Clothing",
	"Other",
}

// Categories returns the expense category taxonomy sent with every
// extraction request
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// NewRecord builds a Record from extracted invoice data
func NewRecord(invoiceFile string, data *scanning.InvoiceData) Record {
	return Record{
		InvoiceFile:   invoiceFile,
		InvoiceNumber: data.InvoiceNumber,
		Date:          data.Date,
		Seller:        data.Seller,
		Client:        data.Client,
		Category:      data.Category,
		Confidence:    data.Confidence,
		ItemsFound:    data.ItemsFound,
		Reasoning:     data.Reasoning,
		TotalAmount:   data.TotalAmount,
	}
}
