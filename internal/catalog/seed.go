package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

type SeedData struct {
	Brands   []domain.PhoneBrand
	Models   []domain.PhoneModel
	Products []domain.Product
}

// DemoCatalog is the starter catalog loaded by POST /seed. Ids are fixed so
// seeding is repeatable.
func DemoCatalog() SeedData {
	brand := func(id, name string) domain.PhoneBrand {
		return domain.PhoneBrand{ID: id, Name: name, IsActive: true}
	}
	model := func(id, brandID, name string) domain.PhoneModel {
		return domain.PhoneModel{ID: id, BrandID: brandID, Name: name, IsActive: true}
	}

	return SeedData{
		Brands: []domain.PhoneBrand{
			brand("brand_apple", "Apple"),
			brand("brand_samsung", "Samsung"),
			brand("brand_xiaomi", "Xiaomi"),
			brand("brand_huawei", "Huawei"),
			brand("brand_motorola", "Motorola"),
		},
		Models: []domain.PhoneModel{
			model("model_iphone15", "brand_apple", "iPhone 15"),
			model("model_iphone15pro", "brand_apple", "iPhone 15 Pro"),
			model("model_iphone14", "brand_apple", "iPhone 14"),
			model("model_iphone13", "brand_apple", "iPhone 13"),
			model("model_s24", "brand_samsung", "Galaxy S24"),
			model("model_s24ultra", "brand_samsung", "Galaxy S24 Ultra"),
			model("model_s23", "brand_samsung", "Galaxy S23"),
			model("model_a54", "brand_samsung", "Galaxy A54"),
			model("model_redmi13", "brand_xiaomi", "Redmi Note 13"),
			model("model_poco", "brand_xiaomi", "Poco X6"),
			model("model_p60", "brand_huawei", "P60 Pro"),
			model("model_edge40", "brand_motorola", "Edge 40"),
		},
		Products: []domain.Product{
			{
				ID:             "prod_funda_normal",
				Name:           "Funda Personalizada Una Pieza",
				Description:    "Funda personalizada de una pieza para uso normal. Diseño elegante con tu imagen favorita, protección diaria para tu smartphone.",
				Price:          decimal.NewFromInt(180),
				Category:       DefaultCategory,
				BaseImageURL:   "https://images.unsplash.com/photo-1601784551446-20c9e07cdbdb?crop=entropy&cs=srgb&fm=jpg&q=85&w=400",
				IsCustomizable: true,
				IsActive:       true,
				Stock:          100,
			},
			{
				ID:             "prod_funda_rudo",
				Name:           "Funda Personalizada Dos Piezas - Uso Rudo",
				Description:    "Funda personalizada de dos piezas para uso rudo. Máxima protección con diseño personalizado, ideal para trabajo pesado y aventuras.",
				Price:          decimal.NewFromInt(280),
				Category:       DefaultCategory,
				BaseImageURL:   "https://images.unsplash.com/photo-1609081219090-a6d81d3085bf?crop=entropy&cs=srgb&fm=jpg&q=85&w=400",
				IsCustomizable: true,
				IsActive:       true,
				Stock:          50,
			},
		},
	}
}
