package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/logger"
)

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.Info.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

// responseWriter captures the status code for the request log.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey int

const actorKey contextKey = iota

// ActorFromContext returns the authenticated actor placed by the auth
// middleware.
func ActorFromContext(ctx context.Context) (core.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(core.Actor)
	return actor, ok
}

func withActor(ctx context.Context, actor core.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
