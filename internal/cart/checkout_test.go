package cart

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sort"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// recordingPlacer accepts every order except those for products in fail.
type recordingPlacer struct {
	mu       sync.Mutex
	requests []infra.CreateOrderRequest
	fail     map[uint64]error
}

func (p *recordingPlacer) CreateOrder(_ context.Context, req infra.CreateOrderRequest) (*domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if err := p.fail[req.ProductID]; err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:        uint64(len(p.requests)),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Total:     req.Total,
		Status:    domain.StatusPending,
	}, nil
}

func (p *recordingPlacer) sorted() []infra.CreateOrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]infra.CreateOrderRequest(nil), p.requests...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func twoLineCart(t *testing.T) (*Cart, *FileStore) {
	t.Helper()
	c, store := newTestCart(t, product(1, "Mug", "10.00", 5), product(2, "Cap", "5.00", 3))
	_, err := c.Add(1)
	require.NoError(t, err)
	_, err = c.SetQuantity(1, 2)
	require.NoError(t, err)
	_, err = c.Add(2)
	require.NoError(t, err)
	return c, store
}

func TestCheckout_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, store := twoLineCart(t)
	placer := &recordingPlacer{}

	res, err := NewCheckout(placer, "255750761558", zap.NewNop()).Run(context.Background(), c)
	require.NoError(t, err)

	reqs := placer.sorted()
	require.Len(t, reqs, 2)
	assert.True(t, decimal.RequireFromString("20.00").Equal(reqs[0].Total))
	assert.True(t, decimal.RequireFromString("5.00").Equal(reqs[1].Total))
	assert.Equal(t, "255750761558", reqs[0].CustomerPhone)
	assert.Equal(t, domain.StatusPending, reqs[0].Status)

	assert.True(t, c.IsEmpty())
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))

	assert.Empty(t, res.Failed())
	assert.Equal(t, "25.00", res.Total.StringFixed(2))

	link, err := url.Parse(res.Link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", link.Host)
	assert.Equal(t, "/255750761558", link.Path)
	text := link.Query().Get("text")
	assert.Contains(t, text, "Mug")
	assert.Contains(t, text, "Cap")
	assert.Contains(t, text, "Total: $25.00")

	mug, _ := c.Snapshot().Lookup(1)
	capItem, _ := c.Snapshot().Lookup(2)
	assert.Equal(t, 3, mug.Stock)
	assert.Equal(t, 2, capItem.Stock)
}

func TestCheckout_PartialFailureKeepsFailedLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, store := twoLineCart(t)
	placer := &recordingPlacer{fail: map[uint64]error{
		2: &infra.APIError{StatusCode: 400, Message: "insufficient stock"},
	}}

	res, err := NewCheckout(placer, "255750761558", zap.NewNop()).Run(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, res.Failed(), 1)
	assert.Equal(t, uint64(2), res.Failed()[0].Line.ID)
	require.Len(t, res.Succeeded(), 1)
	assert.Equal(t, "20.00", res.Total.StringFixed(2))
	assert.Contains(t, res.Summary(), "1 failed")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, uint64(2), lines[0].ID)
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, persisted, 1)

	text := mustText(t, res.Link)
	assert.Contains(t, text, "Mug")
	assert.NotContains(t, text, "Cap")

	capItem, _ := c.Snapshot().Lookup(2)
	assert.Equal(t, 3, capItem.Stock, "failed line is not debited")
}

func TestCheckout_AllFail(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, _ := twoLineCart(t)
	boom := errors.New("connection refused")
	placer := &recordingPlacer{fail: map[uint64]error{1: boom, 2: boom}}

	res, err := NewCheckout(placer, "255750761558", zap.NewNop()).Run(context.Background(), c)
	require.NoError(t, err)

	assert.Len(t, res.Failed(), 2)
	assert.Empty(t, res.Link)
	assert.Len(t, c.Lines(), 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	c, _ := newTestCart(t)
	placer := &recordingPlacer{}

	_, err := NewCheckout(placer, "255750761558", zap.NewNop()).Run(context.Background(), c)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, placer.requests)
}

func TestCheckout_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	products := make([]domain.Product, 0, 10)
	for i := uint64(1); i <= 10; i++ {
		products = append(products, product(i, "Item", "1.00", 1))
	}
	c, _ := newTestCart(t, products...)
	for i := uint64(1); i <= 10; i++ {
		_, err := c.Add(i)
		require.NoError(t, err)
	}

	placer := &gatedPlacer{}
	co := NewCheckout(placer, "255750761558", zap.NewNop())
	co.SetConcurrency(2)

	res, err := co.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, res.Succeeded(), 10)
	assert.LessOrEqual(t, placer.peak, 2)
}

type gatedPlacer struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (p *gatedPlacer) CreateOrder(_ context.Context, req infra.CreateOrderRequest) (*domain.Order, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peak {
		p.peak = p.inFlight
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()
	return &domain.Order{ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func TestMessageLink(t *testing.T) {
	lines := []Line{
		{ID: 1, Name: "Mug & Saucer", Price: decimal.RequireFromString("10"), Quantity: 2},
	}

	link := MessageLink("+255750761558", lines)

	text := mustText(t, link)
	assert.Contains(t, text, "Mug & Saucer")
	assert.Contains(t, text, "Quantity: 2")
	assert.Contains(t, text, "Price: $10.00 each")
	assert.Contains(t, text, "Subtotal: $20.00")
	assert.NotContains(t, link, "+", "spaces are percent-encoded")
}

func mustText(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("text")
}
