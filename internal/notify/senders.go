package notify

import (
	"log/slog"
	"net/http"

	"github.com/labcelsanantonio-byte/LABCEL/internal/config"
	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// ConfiguredSenders builds a sender for every channel the configuration
// enables. Deliveries on a missing channel fail and are recorded as failed.
func ConfiguredSenders(cfg *config.Config, client *http.Client, logger *slog.Logger) map[domain.Channel]Sender {
	senders := map[domain.Channel]Sender{}

	if cfg.EmailServiceURL != "" {
		senders[domain.ChannelEmail] = NewEmailSender(cfg.EmailServiceURL, client)
	} else {
		logger.Warn("EMAIL_SERVICE_URL not set, email notifications are disabled")
	}

	if cfg.Twilio.AccountSID != "" {
		senders[domain.ChannelWhatsApp] = NewWhatsAppSender(
			cfg.Twilio.APIURL, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, client)
	} else {
		logger.Warn("TWILIO_ACCOUNT_SID not set, WhatsApp notifications are disabled")
	}

	return senders
}
