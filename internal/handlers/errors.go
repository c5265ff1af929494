package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/observability"
	"github.com/nikolayk812/ordermgr/internal/service"
	"go.uber.org/zap"
)

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		validationErr *service.ValidationError
		storageErr    *service.StorageError
	)

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
	case errors.As(err, &validationErr):
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", validationErr.Error(), http.StatusBadRequest).
			WithField(validationErr.Field))
	case errors.Is(err, service.ErrItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, service.ErrItemNotInOrder):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_in_order", err.Error(), http.StatusNotFound))
	case errors.Is(err, service.ErrNotFoundOrLocked):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found_or_locked", err.Error(), http.StatusNotFound))
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", service.ErrConflict.Error(), http.StatusConflict))
	case errors.As(err, &storageErr):
		observability.FromContext(ctx).Error("storage failure", zap.String("op", storageErr.Op), zap.Error(storageErr.Err))
		httpx.WriteError(ctx, w, httpx.NewError("storage_error", err.Error(), http.StatusInternalServerError))
	default:
		observability.FromContext(ctx).Error("unexpected error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, field, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("validation_error", message, http.StatusBadRequest).
		WithField(field))
}
