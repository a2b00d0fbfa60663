package scanning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownField is the sentinel written for text fields the service could not
// read. Records with missing fields are kept, never dropped.
const UnknownField = "unknown"

// rawInvoice mirrors the service JSON loosely: total_amount arrives as a
// string or a number depending on how literally the model followed the
// prompt, and items_found is occasionally a single string.
type rawInvoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	Seller        string          `json:"seller"`
	Client        string          `json:"client"`
	Category      string          `json:"category"`
	Confidence    string          `json:"confidence"`
	ItemsFound    json.RawMessage `json:"items_found"`
	Reasoning     string          `json:"reasoning"`
	TotalAmount   json.RawMessage `json:"total_amount"`
}

// parseInvoiceJSON parses the JSON response from the extraction service into
// InvoiceData. Missing fields default to UnknownField (or zero for the
// total); an out-of-taxonomy category maps to the catch-all "Other".
// Unparseable text yields an error wrapping ErrParse.
func parseInvoiceJSON(text string, categories []string) (*InvoiceData, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Slice out the JSON object - first { to last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrParse)
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: truncated JSON object in response", ErrParse)
	}
	text = text[startIdx : endIdx+1]

	var raw rawInvoice
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %v", ErrParse, err)
	}

	data := &InvoiceData{
		InvoiceNumber: orUnknown(raw.InvoiceNumber),
		Date:          orUnknown(raw.Date),
		Seller:        orUnknown(raw.Seller),
		Client:        orUnknown(raw.Client),
		Category:      canonicalCategory(raw.Category, categories),
		Confidence:    orUnknown(raw.Confidence),
		ItemsFound:    parseItems(raw.ItemsFound),
		Reasoning:     orUnknown(raw.Reasoning),
		TotalAmount:   parseAmount(raw.TotalAmount),
	}
	return data, nil
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownField
	}
	return s
}

// canonicalCategory matches the extracted category against the taxonomy,
// case-insensitively. Anything that does not match maps to "Other".
func canonicalCategory(category string, categories []string) string {
	normalized := strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if normalized == strings.ToLower(c) {
			return c
		}
	}
	return "Other"
}

func parseItems(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}
	// Some models return a single string instead of a list
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{single}
	}
	return []string{}
}

// parseAmount tolerates the total arriving as a number, a numeric string, or
// a string with currency noise like "$1,234.56".
func parseAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
