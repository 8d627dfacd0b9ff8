package middlewares

// gin context keys shared with the handlers package
const (
	CtxRequestID   = "request_id"
	CtxAccessToken = "auth.access_token"
)
