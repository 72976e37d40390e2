package domain

// Roles carried in the bearer token claims. Tokens are issued by the
// identity service; this service only verifies them.
const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
	RoleRider    = "rider"
)
