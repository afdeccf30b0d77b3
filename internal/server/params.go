package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/service"
)

// intParam reads an integer query parameter, using def when absent, and checks it
// against [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrInvalidParam, name, raw)
	}
	if err := models.CheckRange(name, v, lo, hi); err != nil {
		return 0, err
	}
	return v, nil
}

// stringParam reads a query parameter with a default.
func stringParam(r *http.Request, name, def string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return def
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownModel),
		errors.Is(err, models.ErrUnknownMethod),
		errors.Is(err, models.ErrInvalidParam),
		errors.Is(err, models.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrWordNotFound):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrModelMissing):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
