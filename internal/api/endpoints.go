package api

// Authentication endpoints
const (
	AuthRegister       = "/api/auth/register"
	AuthVerifyEmail    = "/api/auth/verify-email"
	AuthLogin          = "/api/auth/login"
	AuthRefresh        = "/api/auth/refresh"
	AuthForgotPassword = "/api/auth/forgot-password"
	AuthResetPassword  = "/api/auth/reset-password"
	AuthChangePassword = "/api/auth/change-password"
	AuthLogout         = "/api/auth/logout"
)

// PublicEndpoints defines endpoints that don't require authentication
var PublicEndpoints = map[string]bool{
	AuthRegister:       true,
	AuthVerifyEmail:    true,
	AuthLogin:          true,
	AuthRefresh:        true,
	AuthForgotPassword: true,
	AuthResetPassword:  true,
	AuthLogout:         true,
}
