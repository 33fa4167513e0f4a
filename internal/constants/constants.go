package constants

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserRole  = "user_role"
	ContextKeyUserName  = "user_name"
)

// Session
const (
	SessionCookieName = "taskhive_session"
	SessionKeyUserID  = "session_user_id"
	SessionMaxAge     = 86400 * 7 // 7 days
)

// Validation bounds
const (
	MinPasswordLength    = 8
	MaxNameLength        = 50
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Password hashing work factor (2^12)
const BcryptCost = 12

// Rate limiting: 1000 requests per 15-minute window per client IP
const (
	RateLimitRequests      = 1000
	RateLimitWindowSeconds = 15 * 60
)

// Analytics
const (
	TrendWindowDays = 90
	DueSoonDays     = 7
)

// Max JSON request body size (10 MB)
const MaxBodyBytes = 10 << 20
