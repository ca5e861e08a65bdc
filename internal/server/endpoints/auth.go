package endpoints

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/creatorpulse/pulse/internal/svcctx"
)

// Caller identifies who triggered a request: a user (manual action via
// the X-User-ID header) or the scheduled worker (shared bearer secret).
// The check is a boundary credential stub, not an auth system.
type Caller struct {
	UserID   string
	IsWorker bool
}

// Manual reports whether the request came from a user action.
func (c Caller) Manual() bool { return c.UserID != "" }

// callerFrom extracts the caller identity from request headers.
func callerFrom(r *http.Request) Caller {
	c := Caller{UserID: r.Header.Get("X-User-ID")}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return c
	}
	secret := ""
	if s := svcctx.ServicesFrom(r.Context()); s != nil {
		secret = s.WorkerSecret
	}
	if secret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
		c.IsWorker = true
	}
	return c
}

// requireCaller rejects requests with neither a user identity nor the
// worker secret. Returns the caller and whether the request may proceed.
func requireCaller(w http.ResponseWriter, r *http.Request) (Caller, bool) {
	c := callerFrom(r)
	if !c.Manual() && !c.IsWorker {
		writeError(w, http.StatusUnauthorized, "missing user identity or worker secret")
		return c, false
	}
	return c, true
}

// requireWorker rejects requests without the shared worker secret.
func requireWorker(w http.ResponseWriter, r *http.Request) bool {
	if !callerFrom(r).IsWorker {
		writeError(w, http.StatusUnauthorized, "worker secret required")
		return false
	}
	return true
}
