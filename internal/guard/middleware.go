package guard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

// StateReader returns the current synchronizer state.
type StateReader interface {
	Snapshot() model.State
}

type stateKey struct{}

// WithState returns a context carrying the state a guard decided on.
func WithState(ctx context.Context, s model.State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFromContext returns the state stored by the guard middleware.
func StateFromContext(ctx context.Context) (model.State, bool) {
	s, ok := ctx.Value(stateKey{}).(model.State)
	return s, ok
}

const loadingPage = `<!doctype html><html><head><meta http-equiv="refresh" content="1"></head><body>Loading...</body></html>`

// loadingError is the body of a mutating request refused while the state settles.
const loadingError = "session is loading, retry shortly"

// Middleware enforces policy on every request using the state from states.
//
// Loading answers GET and HEAD with a 200 placeholder and any other method with 503,
// both with Retry-After. Redirects answer 303. Render passes the request on with the
// evaluated state in its context.
func Middleware(policy *Policy, states StateReader, m *metrics.Metrics, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := states.Snapshot()
			d := policy.Decide(state)
			m.ObserveGuardDecision(d.Outcome.String())

			switch d.Outcome {
			case OutcomeLoading:
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Cache-Control", "no-store")
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": loadingError})
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(loadingPage))
			case OutcomeRedirect:
				logger.Debug("Guard: redirecting",
					"path", r.URL.Path,
					"location", d.Location)
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(WithState(r.Context(), state)))
			}
		})
	}
}
