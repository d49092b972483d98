package middleware

import (
	"net/http"
	"strings"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that serve other media (heatmap tiles, problem documents) set
// their own header before writing and win.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT, and PATCH requests whose declared
// Content-Type is not application/json. Requests without a Content-Type
// pass; the JSON decoder deals with them.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"type":"https://api.crowdpollen.io/problems/unsupported-media-type","title":"Unsupported Media Type","status":415,"detail":"Content-Type must be application/json"}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}