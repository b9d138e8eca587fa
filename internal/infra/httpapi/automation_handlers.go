package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"congregation_backend/internal/app"
	"congregation_backend/internal/domain/automation"
)

type automationPayload struct {
	Kind          string          `json:"kind"`
	Config        json.RawMessage `json:"config"`
	SendTimeLocal string          `json:"send_time_local"` // "HH:MM:SS"
	Timezone      string          `json:"timezone"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

type automationView struct {
	ID             int64             `json:"id"`
	OrganizationID int64             `json:"organization_id"`
	Kind           automation.Kind   `json:"kind"`
	Config         automation.Config `json:"config"`
	SendTimeLocal  string            `json:"send_time_local"`
	Timezone       string            `json:"timezone"`
	IsActive       bool              `json:"is_active"`
	LastRunAt      *time.Time        `json:"last_run_at,omitempty"`
	NextRunAt      time.Time         `json:"next_run_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func toAutomationView(a *automation.Automation) automationView {
	v := automationView{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		Kind:           a.Kind,
		Config:         a.Config,
		SendTimeLocal:  a.SendTimeLocal,
		Timezone:       a.Timezone,
		IsActive:       a.IsActive,
		NextRunAt:      a.NextRunAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.LastRunAt.Valid {
		t := a.LastRunAt.Time
		v.LastRunAt = &t
	}
	return v
}

func (p *automationPayload) toParams(orgID int64) (app.AutomationParams, string) {
	cfg, err := automation.DecodeConfig(automation.Kind(p.Kind), p.Config)
	if err != nil {
		return app.AutomationParams{}, err.Error()
	}
	if p.SendTimeLocal == "" {
		return app.AutomationParams{}, "send_time_local is required"
	}
	if p.Timezone == "" {
		return app.AutomationParams{}, "timezone is required"
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return app.AutomationParams{
		OrganizationID: orgID,
		Config:         cfg,
		SendTimeLocal:  p.SendTimeLocal,
		Timezone:       p.Timezone,
		IsActive:       active,
	}, ""
}

func (a *API) createAutomation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	var payload automationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	params, msg := payload.toParams(orgID)
	if msg != "" {
		badRequest(w, msg)
		return
	}

	created, err := a.Automations.Create(r.Context(), params)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAutomationView(created))
}

func (a *API) getAutomation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	found, err := a.Automations.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAutomationView(found))
}

func (a *API) updateAutomation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload automationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	params, msg := payload.toParams(0) // organization is not updatable
	if msg != "" {
		badRequest(w, msg)
		return
	}

	updated, err := a.Automations.Update(r.Context(), id, params)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAutomationView(updated))
}

func (a *API) listAutomations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	automations, err := a.Automations.ListByOrganization(r.Context(), orgID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	views := make([]automationView, 0, len(automations))
	for _, item := range automations {
		views = append(views, toAutomationView(item))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) activateAutomation(w http.ResponseWriter, r *http.Request) {
	a.setAutomationActive(w, r, true)
}

func (a *API) deactivateAutomation(w http.ResponseWriter, r *http.Request) {
	a.setAutomationActive(w, r, false)
}

func (a *API) setAutomationActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updated, err := a.Automations.SetActive(r.Context(), id, active)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAutomationView(updated))
}
