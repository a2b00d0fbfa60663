package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	retry  retryPolicy
}

// NewGemini creates a new Gemini Scanner instance. maxRetries bounds the
// attempts made for a single invoice when the API reports quota exhaustion;
// backoff is the wait between those attempts.
func NewGemini(apiKey string, modelName string, maxRetries int, backoff time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
		retry:  newRetryPolicy(maxRetries, backoff),
	}, nil
}

// ScanInvoice analyzes an invoice image and extracts its fields
func (g *Gemini) ScanInvoice(ctx context.Context, imageData []byte, contentType string, categories []string) (*InvoiceData, error) {
	// Prepare image data (convert to PNG if needed)
	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	// genai.ImageData expects just the format suffix, and after
	// prepareImageData everything is PNG
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(buildInvoicePrompt(categories)),
	}

	start := time.Now()
	var text string
	err = g.retry.do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		resp, err := g.model.GenerateContent(callCtx, parts...)
		if err != nil {
			if isRateLimitError(err) {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
			return fmt.Errorf("%w: generating content: %v", ErrTransport, err)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return fmt.Errorf("%w: no response from gemini", ErrTransport)
		}

		var responseText strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				responseText.WriteString(string(t))
			}
		}
		text = responseText.String()
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("Gemini extraction complete", "elapsed_ms", time.Since(start).Milliseconds())

	data, err := parseInvoiceJSON(text, categories)
	if err != nil {
		return nil, fmt.Errorf("parsing invoice data: %w", err)
	}
	return data, nil
}

// isRateLimitError reports whether the API rejected the request over quota.
// The REST transport surfaces these as googleapi errors with a 429 code.
func isRateLimitError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota")
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
