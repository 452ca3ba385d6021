package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             string          `json:"product_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	BaseImageURL   string          `json:"base_image_url,omitempty"`
	IsCustomizable bool            `json:"is_customizable"`
	IsActive       bool            `json:"is_active"`
	Stock          int             `json:"stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type PhoneBrand struct {
	ID       string `json:"brand_id"`
	Name     string `json:"name"`
	LogoURL  string `json:"logo_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

type PhoneModel struct {
	ID              string `json:"model_id"`
	BrandID         string `json:"brand_id"`
	Name            string `json:"name"`
	ImageURL        string `json:"image_url,omitempty"`
	CaseTemplateURL string `json:"case_template_url,omitempty"`
	IsActive        bool   `json:"is_active"`
}
