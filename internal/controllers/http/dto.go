package http

import (
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	ProductID     uint64             `json:"productId"`
	ProductName   string             `json:"productName"`
	Quantity      int                `json:"quantity"`
	Price         decimal.Decimal    `json:"price"`
	Total         decimal.Decimal    `json:"total"`
	CustomerPhone string             `json:"customerPhone"`
	Status        domain.OrderStatus `json:"status"`
}

type ListOrdersQuery struct {
	Status string `form:"status"`
	Search string `form:"q"`
	Range  string `form:"range"`
	Sort   string `form:"sort"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type OrderActionResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// ProductForm carries the text fields of a multipart product upload. Prices
// arrive as strings so "12.50" keeps its scale.
type ProductForm struct {
	Name        string `form:"name"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Price       string `form:"price"`
	Discount    string `form:"discount"`
	Stock       int    `form:"stock"`
}

type ProductResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

// UpdateStockRequest sets the stock outright when Stock is present, otherwise
// subtracts Quantity (default 1).
type UpdateStockRequest struct {
	Stock    *int `json:"stock"`
	Quantity *int `json:"quantity"`
}

type UpdateStockResponse struct {
	Message       string `json:"message"`
	PreviousStock int    `json:"previousStock"`
	NewStock      int    `json:"newStock"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
