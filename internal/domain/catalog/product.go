package catalog

import (
	"time"

	gosimple "github.com/gosimple/slug"
)

// Stored field names of a product record in the search index.
// Shared by the index schema, the result mapper, and the seeder.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldBrand       = "brand"
	FieldImage       = "image"
	FieldRating      = "rating"
	FieldReviews     = "reviews"
	FieldInStock     = "inStock"
	FieldTags        = "tags"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// TagSeparator joins multi-value tag fields in the stored record.
const TagSeparator = ","

// Product is the canonical catalog record as the UI consumes it.
// Produced by the backend; never written back.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	InStock     bool      `json:"inStock"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Category is a category aggregate. ProductCount is derived from the
// index (facet count), never stored as ground truth.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ProductCount int    `json:"productCount"`
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	return gosimple.Make(name)
}

// Suggestion is a short autocomplete entry derived from product fields.
type Suggestion struct {
	Text string `json:"text"`
}
