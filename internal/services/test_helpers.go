package services

import (
	"storefront/internal/domain"
	"time"

	"github.com/shopspring/decimal"
)

func CreateMockOrder(id uint64, productID uint64, quantity int, price string, status domain.OrderStatus) *domain.Order {
	p := decimal.RequireFromString(price)
	return &domain.Order{
		ID:            id,
		ProductID:     productID,
		ProductName:   TestProductName,
		Quantity:      quantity,
		Price:         p,
		Total:         domain.LineTotal(quantity, p),
		CustomerPhone: TestCustomerPhone,
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

func CreateMockProduct(id uint64, name string, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

const (
	TestProductID     = uint64(1)
	TestOrderID       = uint64(1)
	TestProductName   = "Test Product"
	TestProductPrice  = "10.00"
	TestCustomerPhone = "255750761558"
)
