package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

var productRowColumns = []string{"product_id", "name", "description", "price", "category", "base_image_url",
	"is_customizable", "is_active", "stock", "created_at", "updated_at"}

var repoNow = time.Date(2026, 10, 18, 15, 4, 5, 0, time.UTC)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestRepository_ListProducts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE is_active AND category = $1 ORDER BY created_at, product_id`)).
		WithArgs("funda").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("prod_funda_normal", "Funda", "", "180.00", "funda", "", true, true, 100, repoNow, repoNow))

	products, err := repo.ListProducts(context.Background(), ProductFilter{Category: "funda", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(180)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetProduct_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE product_id = $1`)).
		WithArgs("prod_missing").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	product, err := repo.GetProduct(context.Background(), "prod_missing")
	require.NoError(t, err)
	assert.Nil(t, product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateProduct(t *testing.T) {
	repo, mock := newMockRepo(t)

	price := decimal.RequireFromString("210.50")
	stock := 7
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products SET price = $2, stock = $3, updated_at = $4 WHERE product_id = $1`)).
		WithArgs("prod_funda_normal", price, 7, repoNow).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("prod_funda_normal", "Funda", "", "210.50", "funda", "", true, true, 7, repoNow, repoNow))

	product, err := repo.UpdateProduct(context.Background(), "prod_funda_normal", ProductPatch{Price: &price, Stock: &stock}, repoNow)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, 7, product.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateModel_MapsConstraintErrors(t *testing.T) {
	tests := []struct {
		name string
		code pq.ErrorCode
		want error
	}{
		{name: "unknown brand", code: "23503", want: ErrUnknownBrand},
		{name: "duplicate id", code: "23505", want: ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO phone_models`)).
				WillReturnError(&pq.Error{Code: tt.code})

			err := repo.CreateModel(context.Background(), &domain.PhoneModel{ID: "model_x", BrandID: "brand_x", Name: "X"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRepository_DeleteProduct(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE product_id = $1`)).
		WithArgs("prod_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteProduct(context.Background(), "prod_missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepository_Seed(t *testing.T) {
	t.Run("upserts everything in one transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		data := DemoCatalog()

		mock.ExpectBegin()
		for range data.Brands {
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO phone_brands`)).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		for range data.Models {
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO phone_models`)).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		for range data.Products {
			mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (product_id) DO UPDATE`)).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		require.NoError(t, repo.Seed(context.Background(), data, repoNow))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO phone_brands`)).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.Seed(context.Background(), DemoCatalog(), repoNow)
		assert.ErrorContains(t, err, "brand_apple")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
