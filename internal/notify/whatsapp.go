package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// WhatsAppSender posts to the Twilio Messages API using the whatsapp: address
// scheme.
type WhatsAppSender struct {
	apiURL     string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func NewWhatsAppSender(apiURL, accountSID, authToken, from string, client *http.Client) *WhatsAppSender {
	return &WhatsAppSender{
		apiURL:     strings.TrimRight(apiURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     client,
	}
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *WhatsAppSender) Send(ctx context.Context, msg domain.Message) error {
	form := url.Values{}
	form.Set("To", whatsappAddress(msg.To))
	form.Set("From", whatsappAddress(s.from))
	form.Set("Body", msg.Body)
	if msg.ImageURL != "" {
		form.Set("MediaUrl", msg.ImageURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.apiURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
