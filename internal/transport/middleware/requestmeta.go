package middleware

import (
	"net"
	"net/http"

	"github.com/frahmantamala/expense-claims/internal"
)

// RequestMeta stores the client address and user agent for audit entries.
// It expects chi's RealIP to have run first.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := internal.ContextWithRequestMeta(r.Context(), internal.RequestMeta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
