package validation

// ProcessTryOnRequest is the payload for POST /api/try-on/process
type ProcessTryOnRequest struct {
	TryOnID   string `json:"try_on_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"` // product rendered onto the photo
}

// AddToCartRequest is the payload for POST /api/cart
type AddToCartRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"` // unit price, whole cents
	Size      string  `json:"size" validate:"required,max=16"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=99"`
	ImageURL  string  `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateQuantityRequest is the payload for PUT /api/cart/:id
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

// ListProductsQuery is the query string for GET /api/products
type ListProductsQuery struct {
	Category string `form:"category" json:"category" validate:"omitempty,max=64"`
	Brand    string `form:"brand" json:"brand" validate:"omitempty,max=64"`
}
