package services

import (
	"context"
	"strings"
	"time"

	"storefront/internal/domain"
	rabbit "storefront/internal/infra/rabbitmq"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxPageSize = 200

type CreateOrderInput struct {
	ProductID     uint64
	ProductName   string
	Quantity      int
	Price         decimal.Decimal
	Total         decimal.Decimal
	CustomerPhone string
	Status        domain.OrderStatus
}

type OrderService struct {
	repo   repository.OrderRepository
	cache  ProductCache
	events *eventBus
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(r repository.OrderRepository, pub rabbit.PublisherInterface, logger *zap.Logger) *OrderService {
	return &OrderService{
		repo:   r,
		events: &eventBus{publisher: pub, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

func (u *OrderService) SetCache(c ProductCache) {
	u.cache = c
}

// CreateOrder validates the request, then records the order and debits stock
// atomically.
func (u *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := validateCreateOrder(&in); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ProductID:     in.ProductID,
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Price:         in.Price,
		Total:         domain.LineTotal(in.Quantity, in.Price),
		CustomerPhone: in.CustomerPhone,
		Status:        in.Status,
		CreatedAt:     u.now().UTC().Truncate(time.Second),
	}

	if err := u.repo.CreateWithStockDebit(ctx, order); err != nil {
		u.logger.Info("order rejected",
			zap.Uint64("productId", in.ProductID),
			zap.Int("quantity", in.Quantity),
			zap.Error(err))
		return nil, err
	}
	invalidateProducts(ctx, u.cache, u.logger)

	u.events.publish(domain.EventOrderCreated, domain.OrderCreatedEvent{
		EventID:   uuid.NewString(),
		OrderID:   order.ID,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	})

	u.logger.Info("order created",
		zap.Uint64("orderId", order.ID),
		zap.Uint64("productId", order.ProductID),
		zap.Int("quantity", order.Quantity),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}

func (u *OrderService) GetOrderById(ctx context.Context, id uint64) (*domain.Order, error) {
	return u.repo.FindByID(ctx, id)
}

func (u *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown status "+string(filter.Status))
	}
	if !filter.Range.Valid() {
		return nil, domain.NewValidationError("range", "expected today, week, month or quarter")
	}
	if _, ok := filter.Sort.Clause(); !ok {
		return nil, domain.NewValidationError("sort", "unknown sort "+string(filter.Sort))
	}
	if filter.Limit < 0 || filter.Page < 0 {
		return nil, domain.NewValidationError("page", "must not be negative")
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return u.repo.List(ctx, filter, u.now())
}

func (u *OrderService) Stats(ctx context.Context) (*domain.OrderStats, error) {
	return u.repo.Stats(ctx)
}

func (u *OrderService) ConfirmOrder(ctx context.Context, id uint64) (*domain.Order, error) {
	return u.apply(ctx, id, domain.ActionConfirm, domain.EventOrderConfirmed)
}

// CancelOrder cancels the order and returns its quantity to stock. Cancelling
// twice restocks once.
func (u *OrderService) CancelOrder(ctx context.Context, id uint64) (*domain.Order, error) {
	return u.apply(ctx, id, domain.ActionCancel, domain.EventOrderCancelled)
}

func (u *OrderService) apply(ctx context.Context, id uint64, action domain.OrderAction, pattern string) (*domain.Order, error) {
	order, restocked, err := u.repo.ApplyAction(ctx, id, action)
	if err != nil {
		return nil, err
	}
	if restocked > 0 {
		invalidateProducts(ctx, u.cache, u.logger)
	}

	u.events.publish(pattern, domain.OrderStatusChangedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		ProductID:  order.ProductID,
		Status:     order.Status,
		Restocked:  restocked,
		OccurredAt: u.now().UTC(),
	})

	u.logger.Info("order status applied",
		zap.Uint64("orderId", id),
		zap.String("action", string(action)),
		zap.String("status", string(order.Status)),
		zap.Int("restocked", restocked))
	return order, nil
}

// Drain blocks until queued events are published.
func (u *OrderService) Drain() {
	u.events.wait()
}

func validateCreateOrder(in *CreateOrderInput) error {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)

	var missing []string
	if in.ProductID == 0 {
		missing = append(missing, "productId")
	}
	if in.ProductName == "" {
		missing = append(missing, "productName")
	}
	if in.Quantity == 0 {
		missing = append(missing, "quantity")
	}
	if in.Price.IsZero() {
		missing = append(missing, "price")
	}
	if in.Total.IsZero() {
		missing = append(missing, "total")
	}
	if in.CustomerPhone == "" {
		missing = append(missing, "customerPhone")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}

	if in.Quantity < 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	if in.Price.IsNegative() {
		return domain.NewValidationError("price", "must not be negative")
	}
	if want := domain.LineTotal(in.Quantity, in.Price); !in.Total.Round(2).Equal(want) {
		return domain.NewValidationError("total", "does not equal quantity x price ("+want.StringFixed(2)+")")
	}

	switch in.Status {
	case "":
		in.Status = domain.StatusPending
	case domain.StatusPending, domain.StatusConfirmed:
	default:
		return domain.NewValidationError("status", "initial status must be pending or confirmed")
	}
	return nil
}
