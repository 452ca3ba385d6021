package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxImageSize = 5 << 20
	keyPrefix    = "uploads/"
	publicPrefix = "/api/uploads/image/"
)

var imageIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,5})?$`)

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type Handler struct {
	store  BlobStore
	logger *slog.Logger
}

func NewHandler(store BlobStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type uploadResponse struct {
	ImageID string `json:"image_id"`
	URL     string `json:"url"`
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "image must not exceed 5 MiB")
			return
		}
		h.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.writeError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > MaxImageSize {
		h.writeError(w, http.StatusRequestEntityTooLarge, "image must not exceed 5 MiB")
		return
	}

	imageID := uuid.NewString() + extension(header.Filename, contentType)
	if err := h.store.Put(r.Context(), keyPrefix+imageID, contentType, data); err != nil {
		h.logger.Error("failed to store image", "error", err, "image_id", imageID)
		h.writeError(w, http.StatusBadGateway, "image storage unavailable")
		return
	}

	h.logger.Info("image uploaded", "image_id", imageID, "size", len(data), "content_type", contentType)
	h.writeJSON(w, http.StatusOK, uploadResponse{ImageID: imageID, URL: publicPrefix + imageID})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	imageID := r.PathValue("id")
	if !imageIDPattern.MatchString(imageID) {
		h.writeError(w, http.StatusNotFound, "image not found")
		return
	}

	url, err := h.store.PresignGet(r.Context(), keyPrefix+imageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("failed to presign image", "error", err, "image_id", imageID)
		h.writeError(w, http.StatusBadGateway, "image storage unavailable")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// extension keeps a short alphanumeric extension from the client file name,
// falling back to one registered for the content type.
func extension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) >= 2 && len(ext) <= 6 && isAlnum(ext[1:]) {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func isAlnum(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
