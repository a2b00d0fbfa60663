package scanning

import (
	"fmt"
	"strings"
)

// buildInvoicePrompt is the shared prompt used by all LLM providers for
// extracting and categorizing invoices. The category list is supplied by the
// caller so the providers stay taxonomy-agnostic.
func buildInvoicePrompt(categories []string) string {
	return fmt.Sprintf(`You are an invoice categorization assistant analyzing an invoice image.

1. Carefully read all text in the image and extract:
   - Invoice number
   - Date of issue
   - Seller name
   - Client name
   - All item descriptions
   - Total amount (gross worth)

2. Categorize this invoice into ONE of these categories:
   - %s

3. Respond with this EXACT JSON format (no markdown, no code blocks, just pure JSON):
{
  "invoice_number": "extracted number",
  "date": "MM/DD/YYYY",
  "seller": "seller name",
  "client": "client name",
  "category": "selected category name",
  "confidence": "high/medium/low",
  "items_found": ["item 1", "item 2"],
  "reasoning": "brief explanation of why this category was chosen",
  "total_amount": "numeric value only"
}

Important:
- Base the categorization primarily on the description of goods/services, not just the vendor name
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON`, strings.Join(categories, "\n   - "))
}
