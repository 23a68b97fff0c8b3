package main

import "testing"

func TestGenerateProducts(t *testing.T) {
	const count = 50

	validCategories := make(map[string]struct{})
	for _, c := range categories {
		validCategories[c.ID] = struct{}{}
	}
	validBrands := make(map[string]struct{})
	for _, b := range brands {
		validBrands[b] = struct{}{}
	}

	products := generateProducts(count)
	if len(products) != count {
		t.Fatalf("len = %d, want %d", len(products), count)
	}

	seen := make(map[string]struct{}, count)
	for i, p := range products {
		if p.ID == "" {
			t.Fatalf("product %d has no id", i)
		}
		if _, dup := seen[p.ID]; dup {
			t.Errorf("duplicate id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		if p.Name == "" {
			t.Errorf("product %d has no name", i)
		}
		if _, ok := validCategories[p.Category]; !ok {
			t.Errorf("product %d has unknown category %q", i, p.Category)
		}
		if _, ok := validBrands[p.Brand]; !ok {
			t.Errorf("product %d has unknown brand %q", i, p.Brand)
		}
		if p.Price < 10 || p.Price > 1000 {
			t.Errorf("product %d price %v out of range", i, p.Price)
		}
		if p.Rating < 1 || p.Rating > 5 {
			t.Errorf("product %d rating %v out of range", i, p.Rating)
		}
		if len(p.Tags) != 2 {
			t.Errorf("product %d has %d tags, want 2", i, len(p.Tags))
		}
		if p.Tags[0] == p.Tags[1] {
			t.Errorf("product %d has duplicate tags %v", i, p.Tags)
		}
		if p.CreatedAt.After(p.UpdatedAt) {
			t.Errorf("product %d created %v after updated %v", i, p.CreatedAt, p.UpdatedAt)
		}
	}
}

func TestPickTags(t *testing.T) {
	tags := pickTags(10)
	if len(tags) != len(productTags) {
		t.Errorf("oversized request: got %d tags, want %d", len(tags), len(productTags))
	}
}
