package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Wrap applies the gateway middleware to next. The access log sits outside
// Recover so a panicking request still gets its line with the 500.
func Wrap(log *zap.Logger, next http.Handler) http.Handler {
	return CorrelationID(AccessLog(log)(Recover(log)(next)))
}
