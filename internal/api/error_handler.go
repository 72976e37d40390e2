package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// errorResponse is the error envelope for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var kindStatus = map[string]int{
	domain.KindInvalidCoordinate:   http.StatusBadRequest,
	domain.KindInvalidPricingInput: http.StatusBadRequest,
	domain.KindInvalidShipment:     http.StatusBadRequest,
	domain.KindInvalidSample:       http.StatusBadRequest,
	domain.KindMissingAWB:          http.StatusBadRequest,
	domain.KindIllegalTransition:   http.StatusUnprocessableEntity,
	domain.KindShipmentLocked:      http.StatusConflict,
	domain.KindNotFound:            http.StatusNotFound,
	domain.KindForbidden:           http.StatusForbidden,
	domain.KindStorage:             http.StatusServiceUnavailable,
}

// NewHTTPErrorHandler maps domain errors to status codes by kind. Anything it
// does not recognise is logged and rendered as a bare 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Kind: httpKind(he.Code)}
	}

	kind := domain.KindOf(err)
	if code, ok := kindStatus[kind]; ok {
		if kind == domain.KindStorage {
			log.Error().Err(err).Str("path", c.Path()).Msg("storage failure")
			return code, errorResponse{Error: "storage unavailable", Kind: kind}
		}
		return code, errorResponse{Error: err.Error(), Kind: kind}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: domain.KindInternal}
}

func httpKind(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return domain.KindInternal
	}
}
