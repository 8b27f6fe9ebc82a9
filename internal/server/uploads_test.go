package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Paras-00/Real-time-chat-application/internal/server"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newUploadMux(t *testing.T) (*http.ServeMux, string) {
	t.Helper()
	dir := t.TempDir()
	h := server.NewUploadHandler(newTestLogger(), dir)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("GET /uploads/{filename}", h.Serve)
	return mux, dir
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	io.WriteString(part, content)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadThenServeRoundTrip(t *testing.T) {
	mux, _ := newUploadMux(t)

	body, contentType := multipartBody(t, "file", "notes.txt", "hello upload")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FileURL  string `json:"fileUrl"`
		FileType string `json:"fileType"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	if !strings.HasPrefix(resp.FileURL, "/uploads/") || !strings.HasSuffix(resp.FileURL, ".txt") {
		t.Errorf("Unexpected fileUrl %q", resp.FileURL)
	}
	if resp.FileType == "" {
		t.Error("Expected a detected fileType")
	}

	// fetch it back
	getReq := httptest.NewRequest(http.MethodGet, resp.FileURL, nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("Expected 200 serving uploaded file, got %d", getRec.Code)
	}
	if getRec.Body.String() != "hello upload" {
		t.Errorf("Served content mismatch: %q", getRec.Body.String())
	}
	if got := getRec.Header().Get("Content-Disposition"); got != "inline" {
		t.Errorf("Expected inline disposition, got %q", got)
	}
}

func TestUploadWithoutFileField(t *testing.T) {
	mux, _ := newUploadMux(t)

	body, contentType := multipartBody(t, "wrong-field", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file field, got %d", rec.Code)
	}
}

func TestServeUnknownFile(t *testing.T) {
	mux, _ := newUploadMux(t)

	req := httptest.NewRequest(http.MethodGet, "/uploads/does-not-exist.png", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown file, got %d", rec.Code)
	}
}

func TestServeRejectsPathEscapes(t *testing.T) {
	_, dir := newUploadMux(t)
	h := server.NewUploadHandler(newTestLogger(), dir)

	req := httptest.NewRequest(http.MethodGet, "/uploads/x", nil)
	req.SetPathValue("filename", "../uploads.go")
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for escaping filename, got %d", rec.Code)
	}
}
