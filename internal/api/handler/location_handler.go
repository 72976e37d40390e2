package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// LocationHandler exposes rider ping ingestion and location history.
type LocationHandler struct {
	locations ports.LocationService
	shipments ports.ShipmentService
}

func NewLocationHandler(locations ports.LocationService, shipments ports.ShipmentService) *LocationHandler {
	return &LocationHandler{locations: locations, shipments: shipments}
}

// Ingest handles POST /v1/locations. Riders always report as themselves.
//
// @Summary      Report a rider GPS ping
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      locationRequest  true  "GPS sample"
// @Success      201   {object}  domain.LocationSample
// @Failure      400   {object}  errorResponse
// @Router       /v1/locations [post]
func (h *LocationHandler) Ingest(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if id.Role == domain.RoleRider {
		req.RiderID = id.Subject
	}

	sample, err := h.locations.Ingest(c.Request().Context(), toRawSample(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sample)
}

// Recent handles GET /v1/shipments/:awb/locations.
//
// @Summary      Recent rider positions for a shipment
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        awb    path      string  true   "Air waybill number"
// @Param        limit  query     int     false  "Max samples (default 20, max 200)"
// @Success      200    {object}  locationsResponse
// @Failure      404    {object}  errorResponse
// @Router       /v1/shipments/{awb}/locations [get]
func (h *LocationHandler) Recent(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
	}

	awb := c.Param("awb")
	s, err := h.shipments.Get(c.Request().Context(), awb)
	if err != nil {
		return err
	}
	if !id.canSee(s) {
		return domain.ErrForbidden
	}

	samples, err := h.locations.Recent(c.Request().Context(), awb, limit)
	if err != nil {
		return err
	}
	if samples == nil {
		samples = []domain.LocationSample{}
	}
	return c.JSON(http.StatusOK, locationsResponse{AWB: awb, Locations: samples})
}

// RiderPosition handles GET /v1/riders/:id/location.
//
// @Summary      Last known rider position
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rider ID"
// @Success      200  {object}  domain.RiderPosition
// @Failure      404  {object}  errorResponse
// @Router       /v1/riders/{id}/location [get]
func (h *LocationHandler) RiderPosition(c echo.Context) error {
	pos, err := h.locations.RiderPosition(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pos)
}
