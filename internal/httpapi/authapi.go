// ABOUTME: Identity endpoint plus stubs for the legacy credential routes,
// ABOUTME: which now live with the external identity provider.

package httpapi

import (
	"net/http"

	"github.com/auphere/auphere-gateway/internal/auth"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityOrAnonymous(r.Context())
	a.writeJSON(w, http.StatusOK, map[string]any{
		"id":         identity.ID,
		"email":      identity.Email,
		"name":       identity.Name,
		"avatar_url": identity.Picture,
		"created_at": nil,
	})
}

// handleDelegated answers a retired credential endpoint with a pointer to
// the identity provider that replaced it.
func (a *API) handleDelegated(detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.writeDetail(w, http.StatusNotImplemented, detail)
	}
}
