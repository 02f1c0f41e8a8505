package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"

	"github.com/rl1809/shop-inventory/internal/core/service"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrInvalidProduct):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, service.ErrPartialMovement),
		errors.Is(err, service.ErrLogInconsistent):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrInvalidProduct):
		return codes.InvalidArgument
	case errors.Is(err, service.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, service.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, service.ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, service.ErrPartialMovement),
		errors.Is(err, service.ErrLogInconsistent):
		return codes.DataLoss
	default:
		return codes.Unavailable
	}
}

type errorResponse struct {
	Error         string           `json:"error"`
	Message       string           `json:"message"`
	Available     *decimal.Decimal `json:"available,omitempty"`
	Unit          string           `json:"unit,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
}

// newErrorResponse builds the user-facing body for a service error. Store
// failures are not echoed to clients.
func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: service.Kind(err), Message: err.Error()}

	var insufficient *service.InsufficientStockError
	if errors.As(err, &insufficient) {
		available := insufficient.Available
		resp.Message = insufficient.Detail()
		resp.Available = &available
		resp.Unit = string(insufficient.Unit)
	}

	var partial *service.PartialMovementError
	if errors.As(err, &partial) {
		resp.Message = "movement recorded but stock not updated, verify stock"
		resp.TransactionID = partial.TransactionID
	}

	if resp.Error == "store_unavailable" {
		resp.Message = "service temporarily unavailable, please retry"
	}
	return resp
}
