package api

import (
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/productservice"
)

// ProductRequest is the request body for creating or replacing a product.
// Unknown fields are kept and stored with the record.
type ProductRequest = models.Product

// ProductListResponse is the response of GET /products.
type ProductListResponse = productservice.Result
