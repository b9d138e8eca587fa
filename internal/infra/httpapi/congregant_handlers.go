package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"congregation_backend/internal/app"
	"congregation_backend/internal/domain/congregant"
)

type congregantPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"` // "2006-01-02"
	IsActive  *bool  `json:"is_active,omitempty"`
}

type congregantView struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name,omitempty"`
	Phone          string    `json:"phone"`
	BirthDate      string    `json:"birth_date"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toCongregantView(c *congregant.Congregant) congregantView {
	v := congregantView{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		FirstName:      c.FirstName,
		Phone:          c.Phone,
		BirthDate:      c.BirthDate.Format("2006-01-02"),
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.LastName.Valid {
		v.LastName = c.LastName.String
	}
	return v
}

func (p *congregantPayload) toParams(orgID int64) (app.CongregantParams, string) {
	if p.FirstName == "" {
		return app.CongregantParams{}, "first_name is required"
	}
	if p.Phone == "" {
		return app.CongregantParams{}, "phone is required"
	}
	birthDate, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return app.CongregantParams{}, "invalid birth_date, expected YYYY-MM-DD"
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return app.CongregantParams{
		OrganizationID: orgID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Phone:          p.Phone,
		BirthDate:      birthDate,
		IsActive:       active,
	}, ""
}

func (a *API) createCongregant(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	var payload congregantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	params, msg := payload.toParams(orgID)
	if msg != "" {
		badRequest(w, msg)
		return
	}

	c, err := a.Congregants.Create(r.Context(), params)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCongregantView(c))
}

func (a *API) getCongregant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := a.Congregants.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCongregantView(c))
}

func (a *API) updateCongregant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload congregantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	params, msg := payload.toParams(0) // organization is not updatable
	if msg != "" {
		badRequest(w, msg)
		return
	}

	c, err := a.Congregants.Update(r.Context(), id, params)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCongregantView(c))
}

func (a *API) listCongregants(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}
	members, err := a.Congregants.ListByOrganization(r.Context(), orgID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	views := make([]congregantView, 0, len(members))
	for _, c := range members {
		views = append(views, toCongregantView(c))
	}
	writeJSON(w, http.StatusOK, views)
}
