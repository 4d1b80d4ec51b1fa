package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	in, err := h.readProductInput(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProductResponse{Message: "Product added successfully", Product: product})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	in, err := h.readProductInput(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProductResponse{Message: "Product updated successfully", Product: product})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (h *Handler) UpdateStock(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	change := services.StockChange{Delta: 1}
	switch {
	case req.Stock != nil:
		change = services.StockChange{Set: req.Stock}
	case req.Quantity != nil:
		change.Delta = *req.Quantity
	}

	res, err := h.products.UpdateStock(c.Request.Context(), id, change)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UpdateStockResponse{
		Message:       "Stock updated successfully",
		PreviousStock: res.PreviousStock,
		NewStock:      res.NewStock,
	})
}

// readProductInput parses the product form plus the optional "image" file
// and "gallery" files.
func (h *Handler) readProductInput(c *gin.Context) (services.ProductInput, error) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	var form ProductForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.ProductInput{}, domain.NewValidationError("body", "upload exceeds the size limit")
		}
		return services.ProductInput{}, domain.NewValidationError("body", err.Error())
	}

	price, err := parseDecimal("price", form.Price)
	if err != nil {
		return services.ProductInput{}, err
	}
	discount, err := parseDecimal("discount", form.Discount)
	if err != nil {
		return services.ProductInput{}, err
	}

	in := services.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		Category:    form.Category,
		Price:       price,
		Discount:    discount,
		Stock:       form.Stock,
	}

	mf := c.Request.MultipartForm
	if mf == nil {
		return in, nil
	}
	if files := mf.File["image"]; len(files) > 0 {
		if in.Image, err = readFile(files[0]); err != nil {
			return services.ProductInput{}, err
		}
	}
	for _, fh := range mf.File["gallery"] {
		data, err := readFile(fh)
		if err != nil {
			return services.ProductInput{}, err
		}
		in.Gallery = append(in.Gallery, data)
	}
	return in, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, "must be a decimal number")
	}
	return d, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, domain.NewValidationError("image", "cannot read "+fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.NewValidationError("image", "cannot read "+fh.Filename)
	}
	return data, nil
}
