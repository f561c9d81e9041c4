package receipt_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/frahmantamala/expense-claims/internal/receipt"
	"github.com/frahmantamala/expense-claims/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

func TestReceipt(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Receipt Suite")
}

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	pdfBytes  = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
)

func fieldCode(err error) string {
	appErr, ok := internal.AsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	return details.Errors[0].Code
}

var _ = Describe("DetectMIME", func() {
	DescribeTable("accepts sniffed types and rejects others",
		func(data []byte, declared, expected string) {
			Expect(receipt.DetectMIME(data, declared)).To(Equal(expected))
		},
		Entry("png", pngBytes, "", "image/png"),
		Entry("jpeg despite a wrong declared type", jpegBytes, "application/pdf", "image/jpeg"),
		Entry("pdf", pdfBytes, "", "application/pdf"),
		Entry("plain text declared as png", []byte("hello world"), "image/png", ""),
		Entry("unknown binary with a declared jpg", []byte{0x00, 0x01, 0x02, 0x03}, "image/jpg", "image/jpeg"),
		Entry("unknown binary with a declared gif", []byte{0x00, 0x01, 0x02, 0x03}, "image/gif", ""),
	)
})

var _ = Describe("Storage", func() {
	var (
		fs      afero.Fs
		storage *receipt.Storage
		ctx     context.Context
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		storage = receipt.NewStorage(fs, "uploads", 64)
		ctx = context.Background()
	})

	It("writes the file under a generated name", func() {
		// When
		stored, err := storage.Save(ctx, &receipt.Upload{OriginalName: "C:\\scans\\ticket taxi.PNG", Data: pngBytes})

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.MimeType).To(Equal("image/png"))
		Expect(stored.OriginalName).To(Equal("ticket_taxi.PNG"))
		Expect(stored.Filename).To(MatchRegexp(`^\d+_[0-9a-f]{12}\.png$`))
		Expect(stored.Path).To(Equal(filepath.Join("uploads", stored.Filename)))
		Expect(stored.Size).To(Equal(int64(len(pngBytes))))

		data, err := storage.ReadFile(stored.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(pngBytes))
	})

	It("keeps a .jpeg extension the client sent", func() {
		stored, err := storage.Save(ctx, &receipt.Upload{OriginalName: "photo.jpeg", Data: jpegBytes})

		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Ext(stored.Filename)).To(Equal(".jpeg"))
	})

	It("rejects files over the limit", func() {
		big := append(append([]byte{}, pdfBytes...), make([]byte, 100)...)

		_, err := storage.Save(ctx, &receipt.Upload{OriginalName: "big.pdf", Data: big})

		Expect(fieldCode(err)).To(Equal(string(internal.ErrCodeReceiptTooLarge)))
		exists, _ := afero.DirExists(fs, "uploads")
		Expect(exists).To(BeFalse())
	})

	It("rejects unsupported content", func() {
		_, err := storage.Save(ctx, &receipt.Upload{OriginalName: "notes.txt", Data: []byte("just text")})

		Expect(err).To(MatchError(receipt.ErrInvalidReceipt))
	})

	It("rejects an empty upload", func() {
		_, err := storage.Validate(&receipt.Upload{OriginalName: "empty.png"})

		Expect(fieldCode(err)).To(Equal(string(internal.ErrCodeInvalidReceipt)))
	})

	It("treats removing a missing file as done", func() {
		stored, err := storage.Save(ctx, &receipt.Upload{OriginalName: "a.pdf", Data: pdfBytes})
		Expect(err).NotTo(HaveOccurred())

		Expect(storage.Remove(stored.Path)).To(Succeed())
		Expect(storage.Remove(stored.Path)).To(Succeed())
		Expect(storage.Remove("")).To(Succeed())
	})
})

var _ = Describe("ParseDraft", func() {
	It("extracts the JSON object from surrounding prose", func() {
		// Given a model answer wrapped in a code fence
		answer := "Here you go:\n```json\n" + `{
			"title": "Taxi to airport",
			"amount": "12,50 €",
			"date": "2024-03-15",
			"category": "Transport",
			"merchant": "G7",
			"currency": "eur",
			"confidence": 0.82,
			"warnings": ["tip unclear"]
		}` + "\n```"

		// When
		draft := receipt.ParseDraft(answer)

		// Then
		Expect(draft.Title).To(Equal("Taxi to airport"))
		Expect(draft.Amount.Equal(decimal.RequireFromString("12.5"))).To(BeTrue())
		Expect(draft.Date).To(Equal("2024-03-15"))
		Expect(draft.Category).To(Equal(category.Transport))
		Expect(draft.Merchant).To(Equal("G7"))
		Expect(draft.Currency).To(Equal("EUR"))
		Expect(draft.Confidence).To(BeNumerically("~", 0.82))
		Expect(draft.Warnings).To(Equal([]string{"tip unclear"}))
	})

	It("normalises out of range values", func() {
		draft := receipt.ParseDraft(`{"amount": 42.1, "date": "15/03/2024", "category": "repas", "confidence": 3}`)

		Expect(draft.Amount.Equal(decimal.RequireFromString("42.1"))).To(BeTrue())
		Expect(draft.Date).To(BeEmpty())
		Expect(draft.Category).To(Equal(category.Meals))
		Expect(draft.Confidence).To(Equal(1.0))
		Expect(draft.Currency).To(Equal(receipt.DefaultCurrency))
		Expect(draft.Warnings).To(HaveLen(1))
	})

	It("flags a negative amount", func() {
		draft := receipt.ParseDraft(`{"amount": -5}`)

		Expect(draft.Amount.IsZero()).To(BeTrue())
		Expect(draft.Warnings).To(HaveLen(1))
	})

	It("caps warnings", func() {
		draft := receipt.ParseDraft(`{"warnings": ["1","2","3","4","5","6","7","8","9","10","11","12"], "date": "bad"}`)

		Expect(draft.Warnings).To(HaveLen(10))
	})

	It("returns an empty draft when the answer has no JSON", func() {
		draft := receipt.ParseDraft("Sorry, I cannot read this image.")

		Expect(draft.Title).To(BeEmpty())
		Expect(draft.Category).To(Equal(category.Other))
		Expect(draft.Warnings).To(HaveLen(1))
	})
})

var _ = Describe("OpenAIScanner", func() {
	var (
		server   *httptest.Server
		status   int
		answer   string
		captured map[string]interface{}
		auth     string
	)

	BeforeEach(func() {
		status = http.StatusOK
		captured = nil
		answer = `{"title":"Hotel","amount":"120.00","date":"2024-05-02","category":"lodging","confidence":0.9}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/chat/completions"))
			auth = r.Header.Get("Authorization")
			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &captured)).To(Succeed())

			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": answer}},
				},
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newScanner := func() receipt.Scanner {
		return receipt.NewScanner(internal.OCRConfig{APIKey: "sk-test", BaseURL: server.URL + "/"}, logger.Discard())
	}

	It("sends the receipt as a data URL and parses the answer", func() {
		draft, err := newScanner().Scan(context.Background(), &receipt.Upload{Data: pngBytes}, "image/png")

		Expect(err).NotTo(HaveOccurred())
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(captured["model"]).To(Equal("gpt-4o-mini"))
		Expect(captured["temperature"]).To(BeEquivalentTo(0))
		raw, _ := json.Marshal(captured["messages"])
		Expect(string(raw)).To(ContainSubstring("data:image/png;base64,"))

		Expect(draft.Title).To(Equal("Hotel"))
		Expect(draft.Category).To(Equal(category.Lodging))
		Expect(draft.Amount.Equal(decimal.NewFromInt(120))).To(BeTrue())
	})

	It("reports provider failures as external errors", func() {
		status = http.StatusInternalServerError

		_, err := newScanner().Scan(context.Background(), &receipt.Upload{Data: pngBytes}, "image/png")

		Expect(err).To(MatchError(internal.ErrScanFailed))
	})

	It("falls back to the noop scanner without a key", func() {
		scanner := receipt.NewScanner(internal.OCRConfig{}, logger.Discard())

		draft, err := scanner.Scan(context.Background(), &receipt.Upload{Data: pngBytes}, "image/png")

		Expect(err).NotTo(HaveOccurred())
		Expect(draft.Warnings).To(HaveLen(1))
		Expect(captured).To(BeNil())
	})
})
