package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/infra/storage"
	"storefront/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	orders        *services.OrderService
	products      *services.ProductService
	images        storage.ImageStore
	logger        *zap.Logger
	maxUploadSize int64
	checks        map[string]HealthCheck
}

func NewHandler(orders *services.OrderService, products *services.ProductService, images storage.ImageStore, logger *zap.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		orders:        orders,
		products:      products,
		images:        images,
		logger:        logger,
		maxUploadSize: maxUploadSize,
		checks:        map[string]HealthCheck{},
	}
}

func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET(storage.PublicPrefix+":name", h.ServeImage)

	api := r.Group("/api")

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.CreateProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.PUT("/:id/update-stock", h.UpdateStock)
	products.DELETE("/:id", h.DeleteProduct)

	orders := api.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/stats", h.OrderStats)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/confirm", h.ConfirmOrder)
	orders.PUT("/:id/cancel", h.CancelOrder)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Total:         req.Total,
		CustomerPhone: req.CustomerPhone,
		Status:        req.Status,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), domain.OrderFilter{
		Status: domain.OrderStatus(q.Status),
		Search: q.Search,
		Range:  domain.DateRange(q.Range),
		Sort:   domain.OrderSort(q.Sort),
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) OrderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := h.orders.GetOrderById(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ConfirmOrder(c *gin.Context) {
	h.applyOrderAction(c, h.orders.ConfirmOrder, "Order confirmed")
}

func (h *Handler) CancelOrder(c *gin.Context) {
	h.applyOrderAction(c, h.orders.CancelOrder, "Order cancelled")
}

func (h *Handler) applyOrderAction(c *gin.Context, action func(context.Context, uint64) (*domain.Order, error), message string) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := action(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, OrderActionResponse{Message: message, Order: order})
}

func (h *Handler) ServeImage(c *gin.Context) {
	img, err := h.images.Open(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) || errors.Is(err, storage.ErrInvalidName) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "image not found"})
			return
		}
		writeError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}
