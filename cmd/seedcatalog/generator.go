package main

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/fakestore/storesearch/internal/domain/catalog"
)

// The fixed storefront taxonomy the synthetic catalog draws from.
var categories = []catalog.Category{
	{ID: "electronics", Name: "Electronics", Slug: "electronics", Description: "Electronic devices and accessories"},
	{ID: "clothing", Name: "Clothing", Slug: "clothing", Description: "Fashion items and accessories"},
	{ID: "home", Name: "Home & Living", Slug: "home-living", Description: "Home decor and furniture"},
	{ID: "books", Name: "Books", Slug: "books", Description: "Books and publications"},
}

var brands = []string{
	"TechPro",
	"FashionFlex",
	"HomeStyle",
	"BookWorld",
	"SmartLife",
	"EcoFriendly",
	"LuxuryBrand",
	"BudgetChoice",
}

var productTags = []string{"new", "sale", "popular", "trending"}

// generateProducts builds count synthetic catalog records.
func generateProducts(count int) []catalog.Product {
	now := time.Now()
	products := make([]catalog.Product, 0, count)

	for i := 0; i < count; i++ {
		category := categories[gofakeit.Number(0, len(categories)-1)]
		created := gofakeit.DateRange(now.AddDate(-1, 0, 0), now.AddDate(0, 0, -1))

		products = append(products, catalog.Product{
			ID:          uuid.NewString(),
			Name:        gofakeit.ProductName(),
			Description: gofakeit.Paragraph(1, 3, 12, " "),
			Price:       float64(gofakeit.Number(10, 1000)),
			Category:    category.ID,
			Brand:       brands[gofakeit.Number(0, len(brands)-1)],
			Image:       fmt.Sprintf("https://loremflickr.com/400/400/product?lock=%d", i),
			Rating:      gofakeit.Float64Range(1, 5),
			Reviews:     gofakeit.Number(0, 100),
			InStock:     gofakeit.Bool(),
			Tags:        pickTags(2),
			CreatedAt:   created,
			UpdatedAt:   gofakeit.DateRange(created, now),
		})
	}

	return products
}

// pickTags selects n distinct tags from the fixed tag set.
func pickTags(n int) []string {
	shuffled := make([]string, len(productTags))
	copy(shuffled, productTags)
	gofakeit.ShuffleStrings(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
