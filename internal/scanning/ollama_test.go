package scanning

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// tinyPNG produces a valid 1x1 PNG payload for scanner tests
func tinyPNG() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		data    *InvoiceData
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		scanner, err = NewOllama(server.URL(), "llava", 2, 0)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = scanner.ScanInvoice(context.Background(), tinyPNG(), "image/png", testCategories)
	})

	When("the server returns a valid extraction", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/api/chat"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{
							Role:    "assistant",
							Content: `{"invoice_number": "INV-9", "seller": "Acme", "category": "Office Supplies", "total_amount": 12.30}`,
						},
						Done: true,
					}),
				),
			)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the extraction", func() {
			Expect(data.InvoiceNumber).To(Equal("INV-9"))
			Expect(data.Seller).To(Equal("Acme"))
			Expect(data.TotalAmount).To(Equal(12.30))
		})

		It("should make exactly one request", func() {
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the server rate limits the first attempt", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusTooManyRequests, "slow down"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"invoice_number": "INV-9", "category": "Other"}`,
					},
					Done: true,
				}),
			)
		})

		It("should retry and succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.InvoiceNumber).To(Equal("INV-9"))
			Expect(server.ReceivedRequests()).To(HaveLen(2))
		})
	})

	When("the server keeps rate limiting", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusTooManyRequests, "slow down"),
				ghttp.RespondWith(http.StatusTooManyRequests, "slow down"),
			)
		})

		It("surfaces a rate limit error after the attempt bound", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrRateLimited)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(HaveLen(2))
		})
	})

	When("the server returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
			)
		})

		It("surfaces a transport error without retrying", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrTransport)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the server returns unparseable content", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "sorry, no idea"},
					Done:    true,
				}),
			)
		})

		It("surfaces a parse error", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrParse)).To(BeTrue())
		})
	})
})
