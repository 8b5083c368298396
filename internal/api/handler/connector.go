package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JMAlloway/Check-sub001/internal/api/request"
	"github.com/JMAlloway/Check-sub001/internal/api/response"
	"github.com/JMAlloway/Check-sub001/internal/registry"
)

const defaultKeyValidDays = 365

// Connector exposes the local operator surface the remote console drives:
// registration, key rotation, and traffic toggling.
type Connector struct {
	registry *registry.KeyRegistry
}

func NewConnector(reg *registry.KeyRegistry) *Connector {
	return &Connector{registry: reg}
}

// Register godoc
//
//	@Summary		Register a connector with its first verification key
//	@Tags			Connectors
//	@Security		AdminKeyAuth
//	@Param			body body request.RegisterConnector true "Connector details"
//	@Success		201 {object} model.Connector
//	@Router			/admin/v1/connectors [post]
func (h *Connector) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterConnector
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := req.KeyValidDays
	if days == 0 {
		days = defaultKeyValidDays
	}
	keyExpires := time.Now().UTC().AddDate(0, 0, days)

	c, err := h.registry.Register(r.Context(), req.ID, req.BaseURL, req.KeyID, req.PublicKeyPEM, keyExpires, req.TokenLifetimeSeconds)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, c)
}

// Get godoc
//
//	@Summary		Fetch a connector record
//	@Tags			Connectors
//	@Security		AdminKeyAuth
//	@Param			id path string true "Connector ID"
//	@Success		200 {object} model.Connector
//	@Router			/admin/v1/connectors/{id} [get]
func (h *Connector) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.Get(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// BeginRotation godoc
//
//	@Summary		Start a key rotation overlap window
//	@Tags			Connectors
//	@Security		AdminKeyAuth
//	@Param			id path string true "Connector ID"
//	@Param			body body request.BeginRotation true "Incoming key and overlap"
//	@Success		200 {object} model.Connector
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/admin/v1/connectors/{id}/rotate [post]
func (h *Connector) BeginRotation(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.BeginRotation
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.BeginRotation(r.Context(), id, req.KeyID, req.PublicKeyPEM, req.OverlapHours)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// CompleteRotation promotes the pending secondary key immediately.
func (h *Connector) CompleteRotation(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.CompleteRotation(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// CancelRotation discards the pending secondary key.
func (h *Connector) CancelRotation(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.CancelRotation(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// Enable resumes traffic for a connector.
func (h *Connector) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable refuses all traffic regardless of token validity.
func (h *Connector) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Connector) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.SetEnabled(r.Context(), id, enabled)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// UpdateTokenLifetime changes the lifetime policy for newly minted tokens.
func (h *Connector) UpdateTokenLifetime(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.UpdateTokenLifetime
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.registry.SetTokenLifetime(r.Context(), id, req.TokenLifetimeSeconds)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}
