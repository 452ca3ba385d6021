package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/email"
	"github.com/labcelsanantonio-byte/LABCEL/internal/storage"
)

type discardBlobStore struct{}

func (discardBlobStore) Put(context.Context, string, string, []byte) error { return nil }

func (discardBlobStore) PresignGet(context.Context, string) (string, error) {
	return "", storage.ErrNotFound
}

type capturingMailer struct {
	mu   sync.Mutex
	sent []email.Mail
}

func (m *capturingMailer) Send(_ context.Context, mail email.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

// uploadImage runs the upload endpoint and returns the url it hands back.
func uploadImage(t *testing.T) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="propuesta.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	storage.NewHandler(discardBlobStore{}, discardLogger).HandleUpload(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.URL)
	return resp.URL
}

func TestDispatchProposal_UploadedImageReachesEmailRelay(t *testing.T) {
	imageRef := uploadImage(t)

	mailer := &capturingMailer{}
	relay := http.NewServeMux()
	relay.HandleFunc("POST /send", email.NewHandler(mailer, discardLogger).HandleSend)
	srv := httptest.NewServer(relay)
	defer srv.Close()

	base, err := url.Parse("https://labcel.example.com")
	require.NoError(t, err)

	whatsapp := &fakeSender{}
	log := &memLog{}
	d, err := NewDispatcher(map[domain.Channel]Sender{
		domain.ChannelEmail:    NewEmailSender(srv.URL, srv.Client()),
		domain.ChannelWhatsApp: whatsapp,
	}, log, time.Second, discardLogger, WithPublicBaseURL(base))
	require.NoError(t, err)

	proposal := testProposal(true, true)
	proposal.ImageURL = imageRef

	results, err := d.DispatchProposal(context.Background(), testOrder(), proposal)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Delivered, "channel %s: %s", r.Channel, r.Error)
	}

	want := "https://labcel.example.com" + imageRef
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@example.com", mailer.sent[0].To)
	assert.Equal(t, want, mailer.sent[0].ImageURL)
	require.Equal(t, 1, whatsapp.count())
	assert.Equal(t, want, whatsapp.sent[0].ImageURL)
	for _, entry := range log.entries {
		assert.Equal(t, domain.DeliverySent, entry.Status)
	}
}

func TestDispatchProposal_ImageURLResolution(t *testing.T) {
	base, err := url.Parse("https://labcel.example.com/tienda/")
	require.NoError(t, err)

	tests := []struct {
		name    string
		base    *url.URL
		ref     string
		want    string
		wantErr bool
	}{
		{name: "absolute url is kept", base: base, ref: "https://cdn.example.com/p.png", want: "https://cdn.example.com/p.png"},
		{name: "root relative reference", base: base, ref: "/api/uploads/image/abc.png", want: "https://labcel.example.com/api/uploads/image/abc.png"},
		{name: "path relative reference", base: base, ref: "api/uploads/image/abc.png", want: "https://labcel.example.com/tienda/api/uploads/image/abc.png"},
		{name: "relative reference without a base", ref: "/api/uploads/image/abc.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mail, whatsapp := &fakeSender{}, &fakeSender{}
			d, err := NewDispatcher(map[domain.Channel]Sender{
				domain.ChannelEmail:    mail,
				domain.ChannelWhatsApp: whatsapp,
			}, nil, time.Second, discardLogger, WithPublicBaseURL(tt.base))
			require.NoError(t, err)

			proposal := testProposal(true, false)
			proposal.ImageURL = tt.ref

			_, err = d.DispatchProposal(context.Background(), testOrder(), proposal)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0, mail.count())
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, mail.count())
			assert.Equal(t, tt.want, mail.sent[0].ImageURL)
		})
	}
}

func TestNewDispatcher_RejectsRelativeBaseURL(t *testing.T) {
	_, err := NewDispatcher(nil, nil, time.Second, discardLogger, WithPublicBaseURL(&url.URL{Path: "/tienda"}))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "absolute"))
}
