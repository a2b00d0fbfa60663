package scanning

import "context"

// InvoiceData contains the fields extracted from a single invoice image.
// String fields that the service could not read are filled with "unknown".
type InvoiceData struct {
	InvoiceNumber string   `json:"invoice_number"`
	Date          string   `json:"date"`
	Seller        string   `json:"seller"`
	Client        string   `json:"client"`
	Category      string   `json:"category"`
	Confidence    string   `json:"confidence"`
	ItemsFound    []string `json:"items_found"`
	Reasoning     string   `json:"reasoning"`
	TotalAmount   float64  `json:"total_amount"`
}

// Scanner defines the interface for invoice extraction providers
type Scanner interface {
	// ScanInvoice analyzes one invoice image, extracts its fields, and
	// categorizes it into one of the given categories
	ScanInvoice(ctx context.Context, imageData []byte, contentType string, categories []string) (*InvoiceData, error)
	// Close closes the scanner and releases resources
	Close() error
}
