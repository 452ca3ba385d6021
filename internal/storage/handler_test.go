package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBlobStore struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memBlobStore) Put(_ context.Context, key, contentType string, data []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memBlobStore) PresignGet(_ context.Context, key string) (string, error) {
	if _, ok := s.objects[key]; !ok {
		return "", ErrNotFound
	}
	return "https://bucket.example.com/" + key + "?X-Amz-Signature=abc", nil
}

func newTestRouter(store BlobStore) http.Handler {
	h := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads/image", h.HandleUpload)
	mux.HandleFunc("GET /uploads/image/{id}", h.HandleGet)
	return mux
}

func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_UploadAndFetch(t *testing.T) {
	store := newMemBlobStore()
	router := newTestRouter(store)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "mi-diseno.PNG", "image/png", png))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, resp.ImageID)
	assert.Equal(t, "/api/uploads/image/"+resp.ImageID, resp.URL)
	assert.Equal(t, png, store.objects["uploads/"+resp.ImageID])
	assert.Equal(t, "image/png", store.types["uploads/"+resp.ImageID])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/image/"+resp.ImageID, nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://bucket.example.com/uploads/"+resp.ImageID))
}

func TestHandler_UploadRejections(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		contentType string
		size        int
		want        int
	}{
		{name: "not an image", field: "file", contentType: "application/pdf", size: 10, want: http.StatusBadRequest},
		{name: "wrong field", field: "image", contentType: "image/png", size: 10, want: http.StatusBadRequest},
		{name: "over 5 MiB", field: "file", contentType: "image/jpeg", size: MaxImageSize + 1, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemBlobStore()
			rec := httptest.NewRecorder()
			newTestRouter(store).ServeHTTP(rec, uploadRequest(t, tt.field, "a.jpg", tt.contentType, make([]byte, tt.size)))

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Empty(t, store.objects)
		})
	}

	t.Run("exactly 5 MiB is accepted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(newMemBlobStore()).ServeHTTP(rec, uploadRequest(t, "file", "a.jpg", "image/jpeg", make([]byte, MaxImageSize)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := newMemBlobStore()
		store.putErr = errors.New("bucket unreachable")
		rec := httptest.NewRecorder()
		newTestRouter(store).ServeHTTP(rec, uploadRequest(t, "file", "a.jpg", "image/jpeg", []byte("x")))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandler_GetUnknownImage(t *testing.T) {
	router := newTestRouter(newMemBlobStore())

	for _, id := range []string{"9b2d4c1e-7f3a-4c5b-8d6e-0f1a2b3c4d5e.png", "not-a-uuid", "9b2d4c1e-7f3a-4c5b-8d6e-0f1a2b3c4d5e.tar.gz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/image/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", extension("photo.JPG", "image/jpeg"))
	assert.Equal(t, ".png", extension("noext", "image/png"))
	assert.Equal(t, ".webp", extension("x.we bp", "image/webp"))
}
