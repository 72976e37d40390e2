package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// EventDispatcher is the interface the handler uses to enqueue events.
type EventDispatcher interface {
	Enqueue(ctx context.Context, event ports.StatusEventInput) error
	EnqueueBatch(ctx context.Context, events []ports.StatusEventInput) error
}

// EventHandler accepts status events from external scanners.
type EventHandler struct {
	dispatcher EventDispatcher
}

func NewEventHandler(dispatcher EventDispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

// Receive handles POST /v1/events. Processing is asynchronous.
//
// @Summary      Ingest a scanner status event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      statusEventRequest  true  "Status event"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/events [post]
func (h *EventHandler) Receive(c echo.Context) error {
	var req statusEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.dispatcher.Enqueue(c.Request().Context(), toEventInput(req)); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "event accepted"})
}

// ReceiveBatch handles POST /v1/events/batch. Events for one AWB are applied
// in array order.
//
// @Summary      Ingest a batch of scanner status events
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []statusEventRequest  true  "Status events"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/events/batch [post]
func (h *EventHandler) ReceiveBatch(c echo.Context) error {
	var reqs []statusEventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	inputs := make([]ports.StatusEventInput, 0, len(reqs))
	for i := range reqs {
		if err := c.Validate(&reqs[i]); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("event[%d]: %v", i, message(err)))
		}
		inputs = append(inputs, toEventInput(reqs[i]))
	}

	if err := h.dispatcher.EnqueueBatch(c.Request().Context(), inputs); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "events accepted", Count: len(inputs)})
}

func message(err error) any {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Message
	}
	return err.Error()
}
