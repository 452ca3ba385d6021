package messaging

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

const eventTypeHeader = "event-type"

var _ propagation.TextMapCarrier = eventHeaders{}

// eventHeaders is the header block of one order event message. It carries
// the event type next to the trace context so consumers can label a span
// before decoding the payload.
type eventHeaders struct {
	msg *kafka.Message
}

func headersOf(msg *kafka.Message) eventHeaders {
	return eventHeaders{msg: msg}
}

func (h eventHeaders) Get(key string) string {
	if i := h.index(key); i >= 0 {
		return string(h.msg.Headers[i].Value)
	}
	return ""
}

// Set replaces an existing header. Retried publishes re-inject the same
// message, which must not end up with two traceparent entries.
func (h eventHeaders) Set(key, value string) {
	if i := h.index(key); i >= 0 {
		h.msg.Headers[i].Value = []byte(value)
		return
	}
	h.msg.Headers = append(h.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (h eventHeaders) Keys() []string {
	keys := make([]string, 0, len(h.msg.Headers))
	for _, hdr := range h.msg.Headers {
		keys = append(keys, hdr.Key)
	}
	return keys
}

func (h eventHeaders) EventType() domain.OrderEventType {
	return domain.OrderEventType(h.Get(eventTypeHeader))
}

func (h eventHeaders) SetEventType(t domain.OrderEventType) {
	if t != "" {
		h.Set(eventTypeHeader, string(t))
	}
}

func (h eventHeaders) index(key string) int {
	for i, hdr := range h.msg.Headers {
		if hdr.Key == key {
			return i
		}
	}
	return -1
}
