package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadHandler stores uploaded files on local disk and serves them back
// inline. The chat core only ever sees the resulting fileUrl/fileType
// strings attached to a message.
type UploadHandler struct {
	logger *slog.Logger
	dir    string
}

func NewUploadHandler(logger *slog.Logger, dir string) *UploadHandler {
	if dir == "" {
		dir = "./uploads"
	}
	return &UploadHandler{
		logger: logger.With(slog.String("component", "uploads")),
		dir:    dir,
	}
}

type uploadResponse struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

// Upload accepts a single multipart file under the "file" field and
// responds with its serving URL and MIME type.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"No file uploaded"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		h.logger.Error("Failed to create upload directory", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// stored under a server-generated name; the original name only
	// contributes its extension.
	name := uuid.New().String() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		h.logger.Error("Failed to create upload file", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("Failed to write upload file", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fileType := header.Header.Get("Content-Type")
	if fileType == "" {
		fileType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	h.logger.Info("File uploaded", slog.String("name", name), slog.String("type", fileType))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		FileURL:  "/uploads/" + name,
		FileType: fileType,
	})
}

// Serve returns a previously uploaded file, forcing inline display so
// browsers render rather than download it.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" || filename != filepath.Base(filename) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.dir, filename)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition", "inline")
	http.ServeFile(w, r, path)
}
