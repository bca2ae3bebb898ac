// Package catalog holds the product shapes shared by the API and its
// clients. A product is what a shopper picks before rendering a try-on or
// adding a line to the cart.
package catalog

import "time"

// Product is a garment offered in the catalog.
type Product struct {
	ID          string    `json:"id" dynamodbav:"product_id"` // PK
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Category    string    `json:"category" dynamodbav:"category"`
	Brand       string    `json:"brand,omitempty" dynamodbav:"brand,omitempty"`
	ImageURL    string    `json:"image_url,omitempty" dynamodbav:"image_url,omitempty"`
	Sizes       []string  `json:"sizes" dynamodbav:"sizes"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Filter narrows a product listing. Empty fields match everything.
type Filter struct {
	Category string
	Brand    string
}

// Matches reports whether p passes f.
func (f Filter) Matches(p Product) bool {
	return (f.Category == "" || p.Category == f.Category) &&
		(f.Brand == "" || p.Brand == f.Brand)
}

// HasSize reports whether p is offered in size.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
