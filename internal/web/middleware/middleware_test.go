package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"untrusted keeps socket address", nil, "203.0.113.7:5000",
			map[string]string{"X-Real-IP": "10.9.9.9"}, "203.0.113.7:5000"},
		{"trusted proxy uses X-Real-IP", []string{"10.0.0.0/8"}, "10.1.2.3:5000",
			map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"trusted proxy uses first forwarded", []string{"10.1.2.3"}, "10.1.2.3:5000",
			map[string]string{"X-Forwarded-For": "198.51.100.4, 10.1.2.3"}, "198.51.100.4"},
		{"invalid header ignored", []string{"10.0.0.0/8"}, "10.1.2.3:5000",
			map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:5000"},
		{"invalid cidr skipped", []string{"bogus"}, "10.1.2.3:5000",
			map[string]string{"X-Real-IP": "198.51.100.4"}, "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatusAndFlushes(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer must implement http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
