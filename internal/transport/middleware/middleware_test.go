package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

const testDoc = `
openapi: 3.0.3
info:
  title: test
  version: 1.0.0
paths:
  /api/v1/things/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: integer
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name:
                  type: string
          multipart/form-data:
            schema:
              type: object
      responses:
        '200':
          description: ok
`

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("RequestID", func() {
	It("reuses an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "abc-123")
		w := httptest.NewRecorder()

		RequestID(ok).ServeHTTP(w, req)

		Expect(w.Header().Get(TraceHeader)).To(Equal("abc-123"))
	})

	It("mints one when absent", func() {
		w := httptest.NewRecorder()

		RequestID(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Header().Get(TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("RequestMeta", func() {
	It("stores the client address without the port", func() {
		var meta internal.RequestMeta
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("User-Agent", "curl/8")

		RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta = internal.RequestMetaFromContext(r.Context())
		})).ServeHTTP(httptest.NewRecorder(), req)

		Expect(meta.IP).To(Equal("203.0.113.9"))
		Expect(meta.UserAgent).To(Equal("curl/8"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("answers 500 without leaking the panic value", func() {
		w := httptest.NewRecorder()
		panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("db password is hunter2") })

		RecoveryMiddleware(logger.Discard())(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("hunter2"))
	})
})

var _ = Describe("IPRateLimiter", func() {
	var limiter *IPRateLimiter

	BeforeEach(func() {
		limiter = NewIPRateLimiter(0.001, 2)
	})

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		limiter.Handler(logger.Discard())(ok).ServeHTTP(w, req)
		return w
	}

	It("rejects a client once its burst is spent", func() {
		Expect(send("192.0.2.1:1000").Code).To(Equal(http.StatusOK))
		Expect(send("192.0.2.1:1001").Code).To(Equal(http.StatusOK))

		w := send("192.0.2.1:1002")
		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Header().Get("Retry-After")).To(Equal("1"))
	})

	It("keeps separate buckets per address", func() {
		send("192.0.2.1:1000")
		send("192.0.2.1:1000")

		Expect(send("192.0.2.2:1000").Code).To(Equal(http.StatusOK))
	})

	It("forgets idle clients", func() {
		now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }
		limiter.GetLimiter("192.0.2.1")

		now = now.Add(11 * time.Minute)
		limiter.GetLimiter("192.0.2.2")

		Expect(limiter.visitors).NotTo(HaveKey("192.0.2.1"))
		Expect(limiter.visitors).To(HaveKey("192.0.2.2"))
	})
})

var _ = Describe("OpenAPIValidator", func() {
	var handler http.Handler

	BeforeEach(func() {
		doc, err := LoadOpenAPI(context.Background(), []byte(testDoc))
		Expect(err).NotTo(HaveOccurred())
		validate, err := OpenAPIValidator(doc, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		handler = validate(ok)
	})

	post := func(path, contentType, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	It("passes a conforming request", func() {
		Expect(post("/api/v1/things/1", "application/json", `{"name":"a"}`).Code).To(Equal(http.StatusOK))
	})

	It("rejects a body missing a required field", func() {
		w := post("/api/v1/things/1", "application/json", `{}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeRequestValidation)))
	})

	It("rejects a malformed path parameter", func() {
		Expect(post("/api/v1/things/abc", "application/json", `{"name":"a"}`).Code).To(Equal(http.StatusBadRequest))
	})

	It("leaves multipart bodies to the handler", func() {
		Expect(post("/api/v1/things/1", "multipart/form-data; boundary=x", "--x--").Code).To(Equal(http.StatusOK))
	})

	It("lets undocumented routes through", func() {
		Expect(post("/metrics", "application/json", `{}`).Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("filterSensitiveBody", func() {
	It("masks credentials at any depth", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@b.c","password":"pw","nested":{"refresh_token":"t"}}`))

		Expect(out).To(ContainSubstring(`"email":"a@b.c"`))
		Expect(out).NotTo(ContainSubstring(`"pw"`))
		Expect(out).NotTo(ContainSubstring(`"t"`))
	})

	It("masks the company invite code on registration", func() {
		out := filterSensitiveBody([]byte(`{"email":"erin@acme.test","account_type":"company","invite_code":"DEMO42"}`))

		Expect(out).To(ContainSubstring(`"account_type":"company"`))
		Expect(out).NotTo(ContainSubstring("DEMO42"))
	})
})
