package api

import (
	"errors"
	"net/http"

	"skirental/internal/domain"
	"skirental/internal/listing"
	"skirental/internal/service"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged by the access
// log and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	var (
		stock     *domain.InsufficientStockError
		duplicate *domain.DuplicateLineError
		page      *listing.PageOutOfRangeError
	)

	switch {
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Details: map[string]any{
			"equipment_id": stock.EquipmentID,
			"requested":    stock.Requested,
			"available":    stock.Available,
		}})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Details: map[string]any{
			"equipment_id": duplicate.EquipmentID,
		}})
	case errors.As(err, &page):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Details: map[string]any{
			"requested":   page.Requested,
			"total_pages": page.TotalPages,
		}})
	default:
		status := statusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			message = "internal error"
		}
		c.JSON(status, errorResponse{Error: message})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoCart):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCartBusy),
		errors.Is(err, domain.ErrNotRented),
		errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForeignRental):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidRentWindow),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidTaxRate),
		errors.Is(err, domain.ErrInvalidCustomer),
		errors.Is(err, domain.ErrInvalidEquipment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSessionRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
