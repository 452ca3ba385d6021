package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

var (
	ErrDuplicateID  = errors.New("catalog id already exists")
	ErrUnknownBrand = errors.New("unknown phone brand")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const productColumns = `product_id, name, description, price, category, base_image_url,
	is_customizable, is_active, stock, created_at, updated_at`

type ProductFilter struct {
	Category   string
	ActiveOnly bool
}

// ProductPatch carries the fields of a product update. Nil fields are left
// untouched.
type ProductPatch struct {
	Name           *string          `json:"name" validate:"omitempty,min=1"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	Category       *string          `json:"category" validate:"omitempty,min=1"`
	BaseImageURL   *string          `json:"base_image_url"`
	IsCustomizable *bool            `json:"is_customizable"`
	IsActive       *bool            `json:"is_active"`
	Stock          *int             `json:"stock" validate:"omitempty,gte=0"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var conds []string
	var args []any
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, product_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Name, p.Description, p.Price, p.Category, p.BaseImageURL,
		p.IsCustomizable, p.IsActive, p.Stock, p.CreatedAt, p.UpdatedAt)
	return mapInsertError(err)
}

// UpdateProduct applies the non-nil fields of patch. It returns a nil product
// when the id is unknown.
func (r *Repository) UpdateProduct(ctx context.Context, id string, patch ProductPatch, now time.Time) (*domain.Product, error) {
	sets := []string{}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.BaseImageURL != nil {
		add("base_image_url", *patch.BaseImageURL)
	}
	if patch.IsCustomizable != nil {
		add("is_customizable", *patch.IsCustomizable)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	add("updated_at", now)

	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE product_id = $1 RETURNING `+productColumns, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// DeleteProduct reports whether a product was removed.
func (r *Repository) DeleteProduct(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) ListBrands(ctx context.Context) ([]domain.PhoneBrand, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT brand_id, name, logo_url, is_active
		FROM phone_brands
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	brands := []domain.PhoneBrand{}
	for rows.Next() {
		var b domain.PhoneBrand
		if err := rows.Scan(&b.ID, &b.Name, &b.LogoURL, &b.IsActive); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}

	return brands, rows.Err()
}

func (r *Repository) CreateBrand(ctx context.Context, b *domain.PhoneBrand) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phone_brands (brand_id, name, logo_url, is_active)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.Name, b.LogoURL, b.IsActive)
	return mapInsertError(err)
}

// ListModels returns the phone models of one brand, or of every brand when
// brandID is empty.
func (r *Repository) ListModels(ctx context.Context, brandID string) ([]domain.PhoneModel, error) {
	query := `SELECT model_id, brand_id, name, image_url, case_template_url, is_active FROM phone_models`
	var args []any
	if brandID != "" {
		query += ` WHERE brand_id = $1`
		args = append(args, brandID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	models := []domain.PhoneModel{}
	for rows.Next() {
		var m domain.PhoneModel
		if err := rows.Scan(&m.ID, &m.BrandID, &m.Name, &m.ImageURL, &m.CaseTemplateURL, &m.IsActive); err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	return models, rows.Err()
}

func (r *Repository) CreateModel(ctx context.Context, m *domain.PhoneModel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phone_models (model_id, brand_id, name, image_url, case_template_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.BrandID, m.Name, m.ImageURL, m.CaseTemplateURL, m.IsActive)
	return mapInsertError(err)
}

// Seed upserts the demo catalog in one transaction. Running it again
// refreshes the same rows.
func (r *Repository) Seed(ctx context.Context, data SeedData, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range data.Brands {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO phone_brands (brand_id, name, logo_url, is_active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (brand_id) DO UPDATE
				SET name = EXCLUDED.name, logo_url = EXCLUDED.logo_url, is_active = EXCLUDED.is_active
		`, b.ID, b.Name, b.LogoURL, b.IsActive); err != nil {
			return fmt.Errorf("failed to seed brand %s: %w", b.ID, err)
		}
	}

	for _, m := range data.Models {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO phone_models (model_id, brand_id, name, image_url, case_template_url, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (model_id) DO UPDATE
				SET brand_id = EXCLUDED.brand_id, name = EXCLUDED.name, is_active = EXCLUDED.is_active
		`, m.ID, m.BrandID, m.Name, m.ImageURL, m.CaseTemplateURL, m.IsActive); err != nil {
			return fmt.Errorf("failed to seed model %s: %w", m.ID, err)
		}
	}

	for _, p := range data.Products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			ON CONFLICT (product_id) DO UPDATE
				SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
					category = EXCLUDED.category, base_image_url = EXCLUDED.base_image_url,
					is_customizable = EXCLUDED.is_customizable, is_active = EXCLUDED.is_active,
					stock = EXCLUDED.stock, updated_at = EXCLUDED.updated_at
		`, p.ID, p.Name, p.Description, p.Price, p.Category, p.BaseImageURL,
			p.IsCustomizable, p.IsActive, p.Stock, now); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func mapInsertError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return ErrDuplicateID
	case foreignKeyViolation:
		return ErrUnknownBrand
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.BaseImageURL,
		&p.IsCustomizable, &p.IsActive, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
