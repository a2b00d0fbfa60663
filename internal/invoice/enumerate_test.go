package invoice_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-batch/internal/invoice"
)

var _ = Describe("ListInvoiceFiles", func() {
	var (
		dir   string
		files []string
		err   error
	)

	JustBeforeEach(func() {
		files, err = invoice.ListInvoiceFiles(dir)
	})

	When("the directory holds a mix of files", func() {
		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			for _, name := range []string{"b.jpg", "a.png", "c.TIFF", "notes.txt", "data.csv", "d.gif"} {
				Expect(os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)).To(Succeed())
			}
			Expect(os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755)).To(Succeed())
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return only allow-listed extensions", func() {
			names := make([]string, len(files))
			for i, f := range files {
				names[i] = filepath.Base(f)
			}
			Expect(names).To(Equal([]string{"a.png", "b.jpg", "c.TIFF", "d.gif"}))
		})

		It("should match extensions case-insensitively", func() {
			names := make([]string, len(files))
			for i, f := range files {
				names[i] = filepath.Base(f)
			}
			Expect(names).To(ContainElement("c.TIFF"))
		})

		It("should skip directories", func() {
			for _, f := range files {
				Expect(filepath.Base(f)).NotTo(Equal("sub.jpg"))
			}
		})

		It("should return the same order on every call", func() {
			again, err := invoice.ListInvoiceFiles(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(files))
		})
	})

	When("the directory has no matching files", func() {
		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)).To(Succeed())
		})

		It("should return an empty slice, not an error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})

	When("the directory does not exist", func() {
		BeforeEach(func() {
			dir = filepath.Join(GinkgoT().TempDir(), "missing")
		})

		It("returns ErrDirNotFound", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, invoice.ErrDirNotFound)).To(BeTrue())
		})
	})
})

var _ = Describe("ContentTypeForFile", func() {
	It("maps extensions to MIME types", func() {
		Expect(invoice.ContentTypeForFile("a.jpg")).To(Equal("image/jpeg"))
		Expect(invoice.ContentTypeForFile("a.JPEG")).To(Equal("image/jpeg"))
		Expect(invoice.ContentTypeForFile("a.png")).To(Equal("image/png"))
		Expect(invoice.ContentTypeForFile("a.bmp")).To(Equal("image/bmp"))
		Expect(invoice.ContentTypeForFile("a.tiff")).To(Equal("image/tiff"))
		Expect(invoice.ContentTypeForFile("a.pdf")).To(Equal("application/pdf"))
		Expect(invoice.ContentTypeForFile("a.heic")).To(Equal("image/heic"))
		Expect(invoice.ContentTypeForFile("a.bin")).To(Equal("application/octet-stream"))
	})
})
