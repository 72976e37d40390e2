package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// ShipmentHandler handles HTTP requests for shipment operations.
type ShipmentHandler struct {
	shipments ports.ShipmentService
	lifecycle ports.LifecycleService
}

func NewShipmentHandler(shipments ports.ShipmentService, lifecycle ports.LifecycleService) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments, lifecycle: lifecycle}
}

// Create handles POST /v1/shipments.
//
// @Summary      Create a shipment
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                 false  "Replays return the original shipment"
// @Param        body             body      createShipmentRequest  true   "Shipment details"
// @Success      201              {object}  shipmentResponse
// @Success      200              {object}  shipmentResponse  "Idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/shipments [post]
func (h *ShipmentHandler) Create(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req createShipmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	merchantID := id.MerchantID
	if id.Role == domain.RoleAdmin {
		merchantID = req.MerchantID
	}
	if merchantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "merchant_id is required")
	}

	result, err := h.shipments.Create(c.Request().Context(),
		toCreateInput(req, merchantID, c.Request().Header.Get("Idempotency-Key")))
	if err != nil {
		return err
	}

	code := http.StatusCreated
	if result.AlreadyExisted {
		code = http.StatusOK
	}
	return c.JSON(code, toShipmentResponse(result.Shipment, &result.Quote))
}

// Get handles GET /v1/shipments/:awb.
//
// @Summary      Get a shipment by AWB
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        awb  path      string  true  "Air waybill number"
// @Success      200  {object}  shipmentResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/shipments/{awb} [get]
func (h *ShipmentHandler) Get(c echo.Context) error {
	s, _, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShipmentResponse(s, nil))
}

// Update handles PATCH /v1/shipments/:awb. Only PENDING shipments can change.
//
// @Summary      Edit a pending shipment
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        awb   path      string                 true  "Air waybill number"
// @Param        body  body      updateShipmentRequest  true  "Fields to change"
// @Success      200   {object}  shipmentResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/shipments/{awb} [patch]
func (h *ShipmentHandler) Update(c echo.Context) error {
	s, id, err := h.load(c)
	if err != nil {
		return err
	}

	var req updateShipmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.shipments.Update(c.Request().Context(), toUpdateInput(s.AWB, id.actor(), req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShipmentResponse(updated, nil))
}

// Cancel handles DELETE /v1/shipments/:awb.
//
// @Summary      Cancel a pending shipment
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        awb     path      string  true   "Air waybill number"
// @Param        reason  query     string  false  "Cancellation reason"
// @Success      200     {object}  shipmentResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/shipments/{awb} [delete]
func (h *ShipmentHandler) Cancel(c echo.Context) error {
	s, id, err := h.load(c)
	if err != nil {
		return err
	}

	reason := c.QueryParam("reason")
	if reason == "" && c.Request().ContentLength > 0 {
		var req cancelRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		reason = req.Reason
	}

	cancelled, err := h.lifecycle.Cancel(c.Request().Context(), s.AWB, id.actor(), reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShipmentResponse(cancelled, nil))
}

// Transition handles POST /v1/shipments/:awb/status.
//
// @Summary      Move a shipment to its next status
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        awb   path      string         true  "Air waybill number"
// @Param        body  body      statusRequest  true  "Target status"
// @Success      200   {object}  shipmentResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/shipments/{awb}/status [post]
func (h *ShipmentHandler) Transition(c echo.Context) error {
	s, id, err := h.load(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	to := domain.ShipmentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	meta := map[string]string{}
	if req.Note != "" {
		meta[ports.MetaNote] = req.Note
	}
	switch {
	case id.Role == domain.RoleRider && to == domain.StatusOutForDelivery:
		meta[ports.MetaRiderID] = id.Subject
	case req.RiderID != "":
		meta[ports.MetaRiderID] = req.RiderID
	}

	updated, err := h.lifecycle.Transition(c.Request().Context(), ports.TransitionInput{
		AWB:      s.AWB,
		To:       to,
		Actor:    id.actor(),
		Metadata: meta,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShipmentResponse(updated, nil))
}

// Quote handles POST /v1/quotes.
//
// @Summary      Price a prospective shipment
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      quoteRequest  true  "Parcel and route"
// @Success      200   {object}  quoteResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/quotes [post]
func (h *ShipmentHandler) Quote(c echo.Context) error {
	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.shipments.Quote(c.Request().Context(), toQuoteInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quoteResponse{DistanceKm: res.DistanceKm, PricingQuote: res.Quote})
}

// load fetches the shipment named in the path and checks the caller may touch it.
func (h *ShipmentHandler) load(c echo.Context) (*domain.Shipment, identity, error) {
	id, err := ctxIdentity(c)
	if err != nil {
		return nil, identity{}, err
	}
	s, err := h.shipments.Get(c.Request().Context(), c.Param("awb"))
	if err != nil {
		return nil, identity{}, err
	}
	if !id.canSee(s) {
		return nil, identity{}, domain.ErrForbidden
	}
	return s, id, nil
}
