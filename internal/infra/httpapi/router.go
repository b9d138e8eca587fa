// Package httpapi exposes the tenant-facing configuration endpoints and the
// dispatch trigger over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"congregation_backend/internal/app"
	idb "congregation_backend/internal/infra/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// API bundles the services behind the HTTP surface.
type API struct {
	Organizations app.OrganizationService
	Congregants   app.CongregantService
	Automations   app.AutomationService
	Dispatch      app.DispatchService
	Logger        *logrus.Logger
}

// Router builds the chi router for all endpoints.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/organizations", func(r chi.Router) {
		r.Post("/", a.createOrganization)
		r.Get("/", a.listOrganizations)
		r.Route("/{orgID}", func(r chi.Router) {
			r.Get("/", a.getOrganization)
			r.Put("/", a.updateOrganization)
			r.Post("/congregants", a.createCongregant)
			r.Get("/congregants", a.listCongregants)
			r.Post("/automations", a.createAutomation)
			r.Get("/automations", a.listAutomations)
		})
	})

	r.Route("/congregants/{id}", func(r chi.Router) {
		r.Get("/", a.getCongregant)
		r.Put("/", a.updateCongregant)
	})

	r.Route("/automations/{id}", func(r chi.Router) {
		r.Get("/", a.getAutomation)
		r.Put("/", a.updateAutomation)
		r.Post("/activate", a.activateAutomation)
		r.Post("/deactivate", a.deactivateAutomation)
	})

	r.Post("/dispatch/run", a.runDispatch)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps repository sentinels to HTTP statuses.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, idb.ErrOrganizationNotFound),
		errors.Is(err, idb.ErrCongregantNotFound),
		errors.Is(err, idb.ErrAutomationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, idb.ErrDuplicateAutomation):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		a.Logger.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
