package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
)

const (
	CodeOK                         = "OK"
	CodeInvalidRequest             = "INVALID_REQUEST"
	CodeInsufficientSource         = "INSUFFICIENT_SOURCE"
	CodeInsufficientTargetCapacity = "INSUFFICIENT_TARGET_CAPACITY"
	CodeDuplicateRequest           = "DUPLICATE_REQUEST"
	CodeNotFound                   = "NOT_FOUND"
	CodeConflict                   = "CONFLICT"
	CodeInternal                   = "INTERNAL"
)

// classify maps service errors onto an HTTP status, a stable code and a
// client-facing message. Internal errors never leak their text.
func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusOK, CodeOK, "transfer applied"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientSource):
		return http.StatusConflict, CodeInsufficientSource, err.Error()
	case errors.Is(err, domain.ErrInsufficientTargetCapacity):
		return http.StatusInsufficientStorage, CodeInsufficientTargetCapacity, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, CodeDuplicateRequest, "duplicate request"
	case errors.Is(err, service.ErrInventoryNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		return http.StatusServiceUnavailable, CodeConflict, "inventories busy, retry"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal error"
	}
}
