package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// APIError is a non-2xx reply from the storefront API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store api returned status %d: %s", e.StatusCode, e.Message)
}

type CreateOrderRequest struct {
	ProductID     uint64             `json:"productId"`
	ProductName   string             `json:"productName"`
	Quantity      int                `json:"quantity"`
	Price         decimal.Decimal    `json:"price"`
	Total         decimal.Decimal    `json:"total"`
	CustomerPhone string             `json:"customerPhone"`
	Status        domain.OrderStatus `json:"status,omitempty"`
}

// StoreClient talks to the storefront REST API.
type StoreClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewStoreClient(baseURL string, timeout time.Duration) *StoreClient {
	return &StoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *StoreClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StoreClient) do(ctx context.Context, method, path string, body any, want int, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
