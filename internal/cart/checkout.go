package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/infra"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyCart = errors.New("your cart is empty")

const defaultConcurrency = 4

// OrderPlacer submits a single order.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req infra.CreateOrderRequest) (*domain.Order, error)
}

type LineResult struct {
	Line  Line
	Order *domain.Order
	Err   error
}

func (r LineResult) OK() bool { return r.Err == nil }

type Result struct {
	Lines []LineResult
	// Total covers successful lines only.
	Total decimal.Decimal
	// Link is empty when no line succeeded.
	Link string
}

func (r *Result) Succeeded() []LineResult { return r.filter(true) }
func (r *Result) Failed() []LineResult    { return r.filter(false) }

func (r *Result) filter(ok bool) []LineResult {
	var out []LineResult
	for _, lr := range r.Lines {
		if lr.OK() == ok {
			out = append(out, lr)
		}
	}
	return out
}

// Summary describes the outcome in one line.
func (r *Result) Summary() string {
	failed := len(r.Failed())
	if failed == 0 {
		return fmt.Sprintf("Order sent: %d item(s), total $%s", len(r.Lines), r.Total.StringFixed(2))
	}
	return fmt.Sprintf("%d of %d item(s) ordered, %d failed and stay in the cart", len(r.Lines)-failed, len(r.Lines), failed)
}

type Checkout struct {
	placer      OrderPlacer
	phone       string
	concurrency int
	logger      *zap.Logger
}

func NewCheckout(placer OrderPlacer, phone string, logger *zap.Logger) *Checkout {
	return &Checkout{placer: placer, phone: phone, concurrency: defaultConcurrency, logger: logger}
}

// SetConcurrency bounds the number of in-flight order requests.
func (co *Checkout) SetConcurrency(n int) {
	if n > 0 {
		co.concurrency = n
	}
}

// Run places one order per cart line and waits for all of them. Lines are
// independent: a failure never rolls back the others. Successful lines are
// removed from the cart and debited from the snapshot; failed lines stay.
func (co *Checkout) Run(ctx context.Context, c *Cart) (*Result, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	results := make([]LineResult, len(lines))
	var g errgroup.Group
	g.SetLimit(co.concurrency)

	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			order, err := co.placer.CreateOrder(ctx, infra.CreateOrderRequest{
				ProductID:     line.ID,
				ProductName:   line.Name,
				Quantity:      line.Quantity,
				Price:         line.Price,
				Total:         line.Subtotal(),
				CustomerPhone: co.phone,
				Status:        domain.StatusPending,
			})
			results[i] = LineResult{Line: line, Order: order, Err: err}
			if err != nil {
				co.logger.Warn("order line failed", zap.Uint64("productId", line.ID), zap.Error(err))
				return nil
			}
			c.Snapshot().ApplyStockDelta(line.ID, -line.Quantity)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Lines: results, Total: decimal.Zero}
	placed := make(map[uint64]bool, len(results))
	var ordered []Line
	for _, r := range results {
		if r.OK() {
			placed[r.Line.ID] = true
			ordered = append(ordered, r.Line)
		}
	}
	if len(ordered) == 0 {
		return res, nil
	}

	res.Total = Total(ordered)
	res.Link = MessageLink(co.phone, ordered)
	if err := c.removeLines(placed); err != nil {
		return res, fmt.Errorf("update cart after checkout: %w", err)
	}

	co.logger.Info("checkout finished",
		zap.Int("lines", len(results)),
		zap.Int("placed", len(ordered)),
		zap.String("total", res.Total.StringFixed(2)))
	return res, nil
}
