package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/healping/internal/logger"
)

func TestLogging_HandleHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantLog    string
	}{
		{
			name:       "implicit ok",
			handler:    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			wantStatus: http.StatusOK,
			wantLog:    "HTTP request completed",
		},
		{
			name:       "redirect",
			handler:    func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/auth", http.StatusSeeOther) },
			wantStatus: http.StatusSeeOther,
			wantLog:    "status=303",
		},
		{
			name:       "server error",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
			wantLog:    "HTTP request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(0, &buf))

			rec := httptest.NewRecorder()
			lg.HandleHTTP(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctor/dashboard", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Contains(t, buf.String(), "path=/doctor/dashboard")
		})
	}
}
