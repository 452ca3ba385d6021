package domain

// Contact is the delivery snapshot captured at checkout. It is copied into the
// order and never follows later changes to the buyer's account.
type Contact struct {
	Name            string `json:"customer_name" validate:"required"`
	Email           string `json:"customer_email" validate:"required,email"`
	Phone           string `json:"customer_phone" validate:"required"`
	WhatsApp        string `json:"customer_whatsapp,omitempty"`
	ShippingAddress string `json:"shipping_address" validate:"required"`
}

// CartLine is one customized product in the client's cart.
type CartLine struct {
	ProductID       string `json:"product_id" validate:"required"`
	Quantity        int    `json:"quantity" validate:"gte=1"`
	PhoneBrand      string `json:"phone_brand,omitempty"`
	PhoneModel      string `json:"phone_model,omitempty"`
	CustomImageURL  string `json:"custom_image_url,omitempty"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

// Checkout is the cart handed over by value when the buyer places an order.
// Contact is embedded so the wire format stays flat.
type Checkout struct {
	Items []CartLine `json:"items" validate:"dive"`
	Contact
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=bank_transfer pickup_in_store"`
	Notes         string        `json:"notes,omitempty"`
}
