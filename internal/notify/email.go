package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// EmailSender hands messages to the email relay service.
type EmailSender struct {
	serviceURL string
	client     *http.Client
}

func NewEmailSender(serviceURL string, client *http.Client) *EmailSender {
	return &EmailSender{
		serviceURL: serviceURL,
		client:     client,
	}
}

type relayRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
}

func (s *EmailSender) Send(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(relayRequest{
		To:       msg.To,
		Subject:  msg.Subject,
		Body:     msg.Body,
		ImageURL: msg.ImageURL,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
