package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TrackingStats is the read side of the tracking hub.
type TrackingStats interface {
	ListActiveAwbs() []string
	ActiveSubscriberCount(awb string) int
}

// TrackingHandler serves operational views of live tracking.
type TrackingHandler struct {
	stats TrackingStats
}

func NewTrackingHandler(stats TrackingStats) *TrackingHandler {
	return &TrackingHandler{stats: stats}
}

// Active handles GET /v1/tracking/active.
//
// @Summary      AWBs with live subscribers
// @Tags         tracking
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  activeAWBResponse
// @Router       /v1/tracking/active [get]
func (h *TrackingHandler) Active(c echo.Context) error {
	awbs := h.stats.ListActiveAwbs()
	out := make([]activeAWBResponse, 0, len(awbs))
	for _, awb := range awbs {
		n := h.stats.ActiveSubscriberCount(awb)
		if n == 0 {
			continue
		}
		out = append(out, activeAWBResponse{AWB: awb, Subscribers: n})
	}
	return c.JSON(http.StatusOK, out)
}
