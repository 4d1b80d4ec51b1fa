package http

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps domain errors to a status code. Anything unrecognised is
// logged and reported as a generic 500 so storage details never leak.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		ve  *domain.ValidationError
		nf  *domain.NotFoundError
		ise *domain.InsufficientStockError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: nf.Error()})
	case errors.As(err, &ise):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ise.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func parseID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
