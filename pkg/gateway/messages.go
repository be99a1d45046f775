package gateway

// Error codes returned by the backend. The table below maps each code to a
// short, stable user-facing message; unknown codes fall back to a generic one.
const (
	codeUnknown     = "UNKNOWN_ERROR"
	codeUnavailable = "SERVICE_UNAVAILABLE"
)

var userMessages = map[string]string{
	"INVALID_CREDENTIALS":      "Invalid email or password.",
	"INVALID_TOKEN":            "Your session is no longer valid. Please sign in again.",
	"TOKEN_EXPIRED":            "Your session has expired. Please sign in again.",
	"EMAIL_EXISTS":             "An account with this email already exists.",
	"EMAIL_NOT_VERIFIED":       "Please verify your email address before signing in.",
	"WEAK_PASSWORD":            "Please choose a stronger password.",
	"USER_NOT_FOUND":           "No account found for this email.",
	"VALIDATION_ERROR":         "Please check the submitted values and try again.",
	"RATE_LIMITED":             "Too many attempts. Please wait a moment and try again.",
	codeUnavailable:            "The service is temporarily unavailable. Please try again.",
	codeUnknown:                "Something went wrong. Please try again.",
	"MISSING_ID_TOKEN":         "Sign-in could not be completed. Please try again.",
	"AUTH_ERROR":               "Sign-in could not be completed. Please try again.",
	"PASSWORD_RESET_EXPIRED":   "This password reset link has expired. Please request a new one.",
	"PASSWORD_RESET_INVALID":   "This password reset link is not valid.",
	"ACCOUNT_DISABLED":         "This account has been disabled.",
	"DELETE_CONFIRM_MISMATCH":  "The password you entered does not match.",
	"REFRESH_TOKEN_REVOKED":    "Your session has been signed out elsewhere. Please sign in again.",
	"REFRESH_TOKEN_BLACKLISTED": "Your session has been signed out elsewhere. Please sign in again.",
}

// UserMessage returns the stable user-facing message for a backend error
// code. Unknown codes map to a generic retryable message so raw backend
// strings never leak into the UI.
func UserMessage(code string) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[codeUnknown]
}
