package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dipto-roy/courier-service-sub002/internal/api/middleware"
	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

type identity struct {
	Subject    string
	Role       string
	MerchantID string
}

// ctxIdentity reads the claims injected by the Auth middleware. A merchant
// token without merchant_id is structurally valid but unusable.
func ctxIdentity(c echo.Context) (identity, error) {
	var id identity
	id.Subject, _ = c.Get(middleware.CtxSubject).(string)
	id.Role, _ = c.Get(middleware.CtxRole).(string)
	id.MerchantID, _ = c.Get(middleware.CtxMerchantID).(string)

	if id.Role == "" || id.Subject == "" {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	if id.Role == domain.RoleMerchant && id.MerchantID == "" {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing merchant identity")
	}
	return id, nil
}

// actor is the name recorded in status history.
func (id identity) actor() string {
	return id.Role + ":" + id.Subject
}

// canSee reports whether id may read or modify s. Merchants only see their own
// shipments and riders only the ones assigned to them.
func (id identity) canSee(s *domain.Shipment) bool {
	switch id.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleMerchant:
		return s.MerchantID == id.MerchantID
	case domain.RoleRider:
		return s.RiderID == "" || s.RiderID == id.Subject
	default:
		return false
	}
}
