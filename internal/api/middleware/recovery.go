package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/middleware"
)

// Recovery turns a handler panic into a JSON 500 that carries the request id.
// It sits outside Logging, so the id is read back from the response header.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	requestID := w.Header().Get(middleware.RequestIDHeader)
	if requestID == "" {
		requestID = r.Header.Get(middleware.RequestIDHeader)
	}
	apierr.WriteError(w, apierr.NewInternalErrorRef(requestID))
}
