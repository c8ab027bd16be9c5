package http

import (
	"context"
	"net/http"
	"time"

	"github.com/edustack/auth/pkg/httpx"
)

// Pinger is what readiness needs from the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Livez reports process liveness.
//
//	@Summary	Liveness probe
//	@Tags		system
//	@Success	200
//	@Router		/livez [get]
func Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz reports readiness by pinging the database.
//
//	@Summary	Readiness probe
//	@Tags		system
//	@Success	200
//	@Failure	503
//	@Router		/readyz [get]
func Readyz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
