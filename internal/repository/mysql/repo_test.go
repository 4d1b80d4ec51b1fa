package mysql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	infradb "storefront/internal/infra/mysql"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database. A single connection keeps
// every goroutine on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, infradb.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id uint64) int {
	t.Helper()
	var p domain.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Stock
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&n).Error)
	return n
}

func newOrder(productID uint64, qty int, price string) *domain.Order {
	p := decimal.RequireFromString(price)
	return &domain.Order{
		ProductID:     productID,
		ProductName:   "Mug",
		Quantity:      qty,
		Price:         p,
		Total:         domain.LineTotal(qty, p),
		CustomerPhone: "255750761558",
		Status:        domain.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestOrderRepo_CreateWithStockDebit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 10)

	order := newOrder(p.ID, 3, "10.00")
	require.NoError(t, repo.CreateWithStockDebit(ctx, order))

	assert.NotZero(t, order.ID)
	assert.Equal(t, 7, stockOf(t, db, p.ID))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", stored.ProductName)
	assert.True(t, decimal.RequireFromString("30").Equal(stored.Total))
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestOrderRepo_CreateWithStockDebit_Insufficient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	p := seedProduct(t, db, "Mug", "10.00", 2)

	err := repo.CreateWithStockDebit(context.Background(), newOrder(p.ID, 3, "10.00"))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 2, ise.Available)
	assert.Equal(t, 3, ise.Requested)
	assert.Equal(t, 2, stockOf(t, db, p.ID))
	assert.Zero(t, countOrders(t, db))
}

func TestOrderRepo_CreateWithStockDebit_UnknownProduct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	p := seedProduct(t, db, "Mug", "10.00", 5)

	err := repo.CreateWithStockDebit(context.Background(), newOrder(p.ID+100, 1, "10.00"))

	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, 5, stockOf(t, db, p.ID))
	assert.Zero(t, countOrders(t, db))
}

func TestOrderRepo_ConcurrentOrdersNeverOversell(t *testing.T) {
	tests := []struct {
		name        string
		stock       int
		buyers      int
		qty         int
		wantSuccess int
		wantStock   int
	}{
		{"single units exhaust stock", 10, 25, 1, 10, 0},
		{"multi unit orders leave a remainder", 10, 8, 3, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewOrderRepository(db, zap.NewNop())
			p := seedProduct(t, db, "Mug", "10.00", tt.stock)

			var (
				wg           sync.WaitGroup
				mu           sync.Mutex
				succeeded    int
				insufficient int
			)
			for i := 0; i < tt.buyers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := repo.CreateWithStockDebit(context.Background(), newOrder(p.ID, tt.qty, "10.00"))

					mu.Lock()
					defer mu.Unlock()
					var ise *domain.InsufficientStockError
					switch {
					case err == nil:
						succeeded++
					case errors.As(err, &ise):
						insufficient++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, tt.wantSuccess, succeeded)
			assert.Equal(t, tt.buyers-tt.wantSuccess, insufficient)
			assert.Equal(t, tt.wantStock, stockOf(t, db, p.ID))
			assert.Equal(t, int64(tt.wantSuccess), countOrders(t, db))
		})
	}
}

func TestOrderRepo_ApplyAction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 10)

	order := newOrder(p.ID, 3, "10.00")
	require.NoError(t, repo.CreateWithStockDebit(ctx, order))
	require.Equal(t, 7, stockOf(t, db, p.ID))

	updated, restocked, err := repo.ApplyAction(ctx, order.ID, domain.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Equal(t, 3, restocked)
	assert.Equal(t, 10, stockOf(t, db, p.ID))

	// A second cancel succeeds without restocking again.
	updated, restocked, err = repo.ApplyAction(ctx, order.ID, domain.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Zero(t, restocked)
	assert.Equal(t, 10, stockOf(t, db, p.ID))

	_, _, err = repo.ApplyAction(ctx, order.ID, domain.ActionConfirm)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestOrderRepo_ApplyAction_ConfirmIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 10)

	order := newOrder(p.ID, 2, "10.00")
	require.NoError(t, repo.CreateWithStockDebit(ctx, order))

	for i := 0; i < 2; i++ {
		updated, restocked, err := repo.ApplyAction(ctx, order.ID, domain.ActionConfirm)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, updated.Status)
		assert.Zero(t, restocked)
	}
	assert.Equal(t, 8, stockOf(t, db, p.ID))

	_, _, err := repo.ApplyAction(ctx, order.ID+50, domain.ActionConfirm)
	assert.True(t, domain.IsNotFound(err))
}

func TestOrderRepo_ConcurrentCancelsRestockOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 10)

	order := newOrder(p.ID, 4, "10.00")
	require.NoError(t, repo.CreateWithStockDebit(ctx, order))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.ApplyAction(ctx, order.ID, domain.ActionCancel)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, stockOf(t, db, p.ID))
}

func TestOrderRepo_CancelAfterProductDeleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	products := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 10)

	order := newOrder(p.ID, 1, "10.00")
	require.NoError(t, repo.CreateWithStockDebit(ctx, order))
	require.NoError(t, products.Delete(ctx, p.ID))

	updated, restocked, err := repo.ApplyAction(ctx, order.ID, domain.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Zero(t, restocked)
	assert.Equal(t, "Mug", updated.ProductName)
}

func TestOrderRepo_ListAndStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	seed := []*domain.Order{
		{ProductID: 1, ProductName: "Mug", Quantity: 1, Price: decimal.RequireFromString("10"), Total: decimal.RequireFromString("10"), CustomerPhone: "255700000001", Status: domain.StatusPending, CreatedAt: now.Add(-1 * time.Hour)},
		{ProductID: 2, ProductName: "Cap", Quantity: 2, Price: decimal.RequireFromString("5"), Total: decimal.RequireFromString("10"), CustomerPhone: "255700000002", Status: domain.StatusConfirmed, CreatedAt: now.Add(-48 * time.Hour)},
		{ProductID: 1, ProductName: "Mug", Quantity: 3, Price: decimal.RequireFromString("10"), Total: decimal.RequireFromString("30"), CustomerPhone: "255711111111", Status: domain.StatusCancelled, CreatedAt: now.Add(-40 * 24 * time.Hour)},
	}
	for _, o := range seed {
		require.NoError(t, db.Create(o).Error)
	}

	all, err := repo.List(ctx, domain.OrderFilter{}, now)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, seed[0].ID, all[0].ID, "newest first by default")

	pending, err := repo.List(ctx, domain.OrderFilter{Status: domain.StatusPending}, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, seed[0].ID, pending[0].ID)

	byPhone, err := repo.List(ctx, domain.OrderFilter{Search: "2557111"}, now)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, seed[2].ID, byPhone[0].ID)

	byName, err := repo.List(ctx, domain.OrderFilter{Search: "CAP"}, now)
	require.NoError(t, err)
	require.Len(t, byName, 1)

	week, err := repo.List(ctx, domain.OrderFilter{Range: domain.RangeWeek}, now)
	require.NoError(t, err)
	assert.Len(t, week, 2)

	today, err := repo.List(ctx, domain.OrderFilter{Range: domain.RangeToday}, now)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	byTotal, err := repo.List(ctx, domain.OrderFilter{Sort: "total_desc"}, now)
	require.NoError(t, err)
	assert.Equal(t, seed[2].ID, byTotal[0].ID)

	page2, err := repo.List(ctx, domain.OrderFilter{Page: 2, Limit: 2}, now)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, seed[2].ID, page2[0].ID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.ConfirmedOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.True(t, decimal.RequireFromString("20").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
}

func TestOrderRepo_StatsKeepsCents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())

	for _, total := range []string{"10.10", "0.20", "0.05"} {
		o := newOrder(1, 1, total)
		o.Status = domain.StatusConfirmed
		require.NoError(t, db.Create(o).Error)
	}

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ConfirmedOrders)
	assert.Equal(t, "10.35", stats.TotalRevenue.StringFixed(2))
	assert.True(t, decimal.RequireFromString("10.35").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
}

func TestProductRepo_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	older := &domain.Product{Name: "Cap", Price: decimal.RequireFromString("5.00"), Stock: 1, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &domain.Product{Name: "Mug", Price: decimal.RequireFromString("10.50"), Stock: 4, Gallery: []string{"/uploads/a.png", "/uploads/b.png"}}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Mug", all[0].Name)
	assert.Equal(t, []string{"/uploads/a.png", "/uploads/b.png"}, all[0].Gallery)
	assert.True(t, decimal.RequireFromString("10.5").Equal(all[0].Price))

	newer.Name = "Big Mug"
	newer.Stock = 0
	require.NoError(t, repo.Update(ctx, newer))

	found, err := repo.FindByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", found.Name)
	assert.Equal(t, 0, found.Stock)

	err = repo.Update(ctx, &domain.Product{ID: 999, Name: "Ghost"})
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, repo.Delete(ctx, older.ID))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, older.ID)))
	_, err = repo.FindByID(ctx, older.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestProductRepo_AdjustStock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Mug", "10.00", 5)

	prev, next, err := repo.AdjustStock(ctx, p.ID, func(current int) int { return current - 2 })
	require.NoError(t, err)
	assert.Equal(t, 5, prev)
	assert.Equal(t, 3, next)

	prev, next, err = repo.AdjustStock(ctx, p.ID, func(current int) int { return current - 10 })
	require.NoError(t, err)
	assert.Equal(t, 3, prev)
	assert.Equal(t, 0, next)
	assert.Equal(t, 0, stockOf(t, db, p.ID))

	_, _, err = repo.AdjustStock(ctx, p.ID+1, func(current int) int { return current })
	assert.True(t, domain.IsNotFound(err))
}
