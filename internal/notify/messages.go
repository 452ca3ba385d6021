package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

var statusMessages = map[domain.OrderStatus]string{
	domain.StatusConfirmed:  "Tu pedido ha sido confirmado. Estamos preparando tu diseño.",
	domain.StatusInProgress: "Tu pedido está en proceso de fabricación.",
	domain.StatusShipped:    "¡Tu pedido ha sido enviado! Pronto lo recibirás.",
	domain.StatusDelivered:  "Tu pedido ha sido entregado. ¡Gracias por tu compra!",
	domain.StatusCancelled:  "Tu pedido ha sido cancelado. Contáctanos si tienes dudas.",
}

func money(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func OrderCreatedCustomerMessage(event domain.OrderEvent) domain.Message {
	return domain.Message{
		To:      event.CustomerEmail,
		Subject: "Pedido recibido #" + event.OrderID,
		Body: fmt.Sprintf("¡Gracias por tu pedido #%s!\nTotal: %s\nTe contactaremos pronto para confirmar tu diseño.",
			event.OrderID, money(event.Total)),
	}
}

func OrderCreatedAdminMessage(event domain.OrderEvent) domain.Message {
	return domain.Message{
		Subject: "Nuevo pedido #" + event.OrderID,
		Body: fmt.Sprintf("Nuevo pedido #%s\nCliente: %s\nTotal: %s\nProductos: %d",
			event.OrderID, event.CustomerName, money(event.Total), event.ItemCount),
	}
}

func StatusUpdateMessage(event domain.OrderEvent) domain.Message {
	body, ok := statusMessages[event.Status]
	if !ok {
		body = "Tu pedido ha sido actualizado: " + string(event.Status)
	}
	if event.Notes != "" {
		body += "\n\n" + event.Notes
	}

	return domain.Message{
		To:      event.CustomerEmail,
		Subject: fmt.Sprintf("Pedido #%s: %s", event.OrderID, event.Status),
		Body:    body,
	}
}

func DesignProposalMessage(order *domain.Order, proposal domain.DesignProposal) domain.Message {
	return domain.Message{
		Subject:  "Propuesta de diseño para tu pedido #" + order.ID,
		Body:     fmt.Sprintf("Propuesta de diseño para tu pedido #%s\n\n%s\n\nResponde para aprobar o solicitar cambios.", order.ID, proposal.Message),
		ImageURL: proposal.ImageURL,
	}
}
