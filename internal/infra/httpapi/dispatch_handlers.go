package httpapi

import (
	"net/http"
)

// runDispatch is the trigger surface: run due automations now. It is
// idempotent to call repeatedly; with nothing due it returns zero counts.
func (a *API) runDispatch(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Dispatch.RunDuePass(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
