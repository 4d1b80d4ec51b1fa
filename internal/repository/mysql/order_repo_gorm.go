package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTransitionAttempts = 3

// errStatusRace means another writer changed the order's status between our
// read and our conditional write.
var errStatusRace = errors.New("order status changed concurrently")

type orderRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewOrderRepository(db *gorm.DB, logger *zap.Logger) repository.OrderRepository {
	return &orderRepo{db: db, logger: logger}
}

func (r *orderRepo) CreateWithStockDebit(ctx context.Context, order *domain.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The stock guard lives in the WHERE clause so the check and the debit
		// are a single statement.
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND stock >= ?", order.ProductID, order.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", order.Quantity))
		if res.Error != nil {
			return domain.NewStorageError("debit stock", res.Error)
		}

		if res.RowsAffected == 0 {
			var p domain.Product
			if err := tx.Select("id", "stock").First(&p, order.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &domain.NotFoundError{Resource: "product", ID: order.ProductID}
				}
				return domain.NewStorageError("find product", err)
			}
			return &domain.InsufficientStockError{
				ProductID: order.ProductID,
				Requested: order.Quantity,
				Available: p.Stock,
			}
		}

		if err := tx.Create(order).Error; err != nil {
			return domain.NewStorageError("insert order", err)
		}
		if order.ID == 0 {
			return domain.NewStorageError("insert order", errors.New("no id assigned"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("order saved",
		zap.Uint64("orderId", order.ID),
		zap.Uint64("productId", order.ProductID),
		zap.Int("quantity", order.Quantity))
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "order", ID: id}
		}
		return nil, domain.NewStorageError("find order", err)
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter domain.OrderFilter, now time.Time) ([]domain.Order, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(customer_phone) LIKE ? OR LOWER(product_name) LIKE ? OR CAST(id AS CHAR) LIKE ?", like, like, like)
	}
	if since, ok := filter.Range.Since(now); ok {
		q = q.Where("created_at >= ?", since.UTC())
	}

	order, ok := filter.Sort.Clause()
	if !ok {
		order, _ = domain.DefaultOrderSort.Clause()
	}
	q = q.Order(order)

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	out := []domain.Order{}
	if err := q.Find(&out).Error; err != nil {
		return nil, domain.NewStorageError("list orders", err)
	}
	return out, nil
}

type statusAggregate struct {
	Status  domain.OrderStatus
	Count   int64
	Revenue decimal.Decimal
}

func (r *orderRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	var rows []statusAggregate
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, domain.NewStorageError("order stats", err)
	}

	stats := &domain.OrderStats{TotalRevenue: decimal.Zero}
	for _, row := range rows {
		stats.TotalOrders += row.Count
		switch row.Status {
		case domain.StatusPending:
			stats.PendingOrders = row.Count
		case domain.StatusConfirmed:
			stats.ConfirmedOrders = row.Count
		case domain.StatusCancelled:
			stats.CancelledOrders = row.Count
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(row.Revenue)
	}
	// Drivers without a decimal type hand back SUM as a float.
	stats.TotalRevenue = stats.TotalRevenue.Round(2)
	return stats, nil
}

func (r *orderRepo) ApplyAction(ctx context.Context, id uint64, action domain.OrderAction) (*domain.Order, int, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		order, restocked, err := r.applyOnce(ctx, id, action)
		if errors.Is(err, errStatusRace) {
			r.logger.Info("retrying order transition",
				zap.Uint64("orderId", id),
				zap.String("action", string(action)),
				zap.Int("attempt", attempt+1))
			continue
		}
		return order, restocked, err
	}
	return nil, 0, domain.NewStorageError("update order status", errStatusRace)
}

func (r *orderRepo) applyOnce(ctx context.Context, id uint64, action domain.OrderAction) (*domain.Order, int, error) {
	var (
		order     domain.Order
		restocked int
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Resource: "order", ID: id}
			}
			return domain.NewStorageError("find order", err)
		}

		next, err := domain.NextStatus(order.Status, action)
		if err != nil {
			return err
		}
		if next == order.Status {
			return nil
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", id, order.Status).
			UpdateColumn("status", next)
		if res.Error != nil {
			return domain.NewStorageError("update order status", res.Error)
		}
		if res.RowsAffected == 0 {
			return errStatusRace
		}

		if next == domain.StatusCancelled {
			res := tx.Model(&domain.Product{}).
				Where("id = ?", order.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", order.Quantity))
			if res.Error != nil {
				return domain.NewStorageError("restock product", res.Error)
			}
			if res.RowsAffected > 0 {
				restocked = order.Quantity
			}
		}

		order.Status = next
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &order, restocked, nil
}
