package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"congregation_backend/internal/domain/organization"

	"github.com/go-chi/chi/v5"
)

type organizationPayload struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type organizationView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toOrganizationView(org *organization.Organization) organizationView {
	return organizationView{
		ID:        org.ID,
		Name:      org.Name,
		Timezone:  org.Timezone,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

func (a *API) createOrganization(w http.ResponseWriter, r *http.Request) {
	var payload organizationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if payload.Name == "" {
		badRequest(w, "name is required")
		return
	}

	org, err := a.Organizations.Create(r.Context(), payload.Name, payload.Timezone)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrganizationView(org))
}

func (a *API) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	org, err := a.Organizations.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationView(org))
}

func (a *API) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	var payload organizationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}

	org, err := a.Organizations.Update(r.Context(), id, payload.Name, payload.Timezone)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationView(org))
}

func (a *API) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := a.Organizations.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	views := make([]organizationView, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, toOrganizationView(org))
	}
	writeJSON(w, http.StatusOK, views)
}

// pathID parses a numeric path parameter, replying 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}
