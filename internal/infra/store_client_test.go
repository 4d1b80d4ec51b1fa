package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreClient_ListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Mug","price":"10.00","stock":3}]`))
	}))
	defer srv.Close()

	client := NewStoreClient(srv.URL+"/", time.Second)
	products, err := client.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Mug", products[0].Name)
	assert.Equal(t, 3, products[0].Stock)
	assert.True(t, decimal.RequireFromString("10").Equal(products[0].Price))
}

func TestStoreClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(4), req.ProductID)
		assert.True(t, decimal.RequireFromString("20").Equal(req.Total))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Order{ID: 9, ProductID: req.ProductID, Quantity: req.Quantity, Status: domain.StatusPending})
	}))
	defer srv.Close()

	client := NewStoreClient(srv.URL, time.Second)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		ProductID:     4,
		ProductName:   "Mug",
		Quantity:      2,
		Price:         decimal.RequireFromString("10.00"),
		Total:         decimal.RequireFromString("20.00"),
		CustomerPhone: "255700000000",
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(9), order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
}

func TestStoreClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Insufficient stock"}`))
	}))
	defer srv.Close()

	client := NewStoreClient(srv.URL, time.Second)
	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{ProductID: 1})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Insufficient stock", apiErr.Message)
}
