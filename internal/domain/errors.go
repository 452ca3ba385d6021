package domain

import (
	"errors"
	"fmt"
)

var ErrNoRecipient = errors.New("no recipient for channel")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// InvalidOrderError is returned for a checkout that cannot become an order at all.
type InvalidOrderError struct {
	Message string
}

func (e *InvalidOrderError) Error() string {
	return e.Message
}

type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order %s from %s to %s: %s", e.OrderID, e.From, e.To, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "not authenticated: " + e.Reason
}

type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return "not allowed to " + e.Action
}

type NotificationDeliveryError struct {
	Channel Channel
	Err     error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}
