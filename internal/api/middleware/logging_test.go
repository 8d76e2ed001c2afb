package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerRecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/messages", nil))

	var entry struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Bytes  int    `json:"bytes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if entry.Method != "GET" || entry.Path != "/api/messages" {
		t.Fatalf("wrong request fields: %+v", entry)
	}
	if entry.Status != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", entry.Status, http.StatusTeapot)
	}
	if entry.Bytes != len("short and stout") {
		t.Fatalf("bytes = %d, want %d", entry.Bytes, len("short and stout"))
	}
}
