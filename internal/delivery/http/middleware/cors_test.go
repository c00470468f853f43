package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS([]string{"https://app.example.org/", " https://staging.example.org "}, next)

	tests := []struct {
		name            string
		method          string
		origin          string
		wantStatus      int
		wantAllowOrigin string
		wantPreflight   bool
	}{
		{"allowed origin", http.MethodGet, "https://app.example.org", http.StatusOK, "https://app.example.org", false},
		{"trimmed origin allowed", http.MethodGet, "https://staging.example.org", http.StatusOK, "https://staging.example.org", false},
		{"unknown origin gets no headers", http.MethodGet, "https://evil.example.org", http.StatusOK, "", false},
		{"no origin header", http.MethodGet, "", http.StatusOK, "", false},
		{"preflight from allowed origin", http.MethodOptions, "https://app.example.org", http.StatusNoContent, "https://app.example.org", true},
		{"preflight from unknown origin", http.MethodOptions, "https://evil.example.org", http.StatusNoContent, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://test/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantAllowOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			if tt.wantPreflight {
				assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Methods"))
				assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Headers"))
			} else {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
