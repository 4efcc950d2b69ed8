package puzzle_client

const (
	// API Endpoints
	SwapEndpoint = "/api/games/puzzle/swap"

	// Headers
	ContentTypeHeader = "Content-Type"
	AcceptHeader      = "Accept"
	RequestIDHeader   = "X-Request-ID"
	CookieHeader      = "Cookie"
	UserAgentHeader   = "User-Agent"

	JSONContentType = "application/json"
	UserAgent       = "tileswap/1.0"
)
