package handler

import (
	"net/http"
	"time"

	mw "github.com/JMAlloway/Check-sub001/internal/api/middleware"
	"github.com/JMAlloway/Check-sub001/internal/api/request"
	"github.com/JMAlloway/Check-sub001/internal/api/response"
	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/gateway"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// Item serves metadata-only lookups, no image bytes.
type Item struct {
	svc         *gateway.Service
	auditor     *audit.Logger
	connectorID string
}

func NewItem(svc *gateway.Service, auditor *audit.Logger, connectorID string) *Item {
	return &Item{svc: svc, auditor: auditor, connectorID: connectorID}
}

// Lookup godoc
//
//	@Summary		Look up item metadata by trace number and date
//	@Tags			Items
//	@Security		BearerAuth
//	@Param			trace query string true "Trace number"
//	@Param			date query string true "Item date (YYYY-MM-DD)"
//	@Success		200 {object} model.Item
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/v1/items/lookup [get]
func (h *Item) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rec := model.AuditRecord{
		Timestamp:   time.Now().UTC(),
		ConnectorID: h.connectorID,
		Endpoint:    r.URL.Path,
	}
	if claims := mw.GetClaims(r.Context()); claims != nil {
		rec.TenantID = claims.TenantID
		rec.UserID = claims.UserID
	}

	trace := r.URL.Query().Get("trace")
	if trace == "" {
		h.deny(w, rec, start, apperr.New(apperr.CodeInvalidInput, "missing required trace"))
		return
	}
	date, err := request.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.deny(w, rec, start, apperr.Wrap(apperr.CodeInvalidInput, "invalid date", err))
		return
	}

	item, err := h.svc.LookupItem(r.Context(), trace, date)
	rec.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			rec.Action = model.AuditNotFound
		} else {
			rec.Action = model.AuditDecodeFailed
		}
		h.auditor.Record(rec)
		response.WriteDomainError(w, err)
		return
	}

	rec.Action = model.AuditImageServed
	rec.Allow = true
	rec.PathHash = audit.HashPath(item.FrontPath)
	h.auditor.Record(rec)
	response.WriteJSON(w, http.StatusOK, item)
}

// deny audits a malformed lookup and writes the 400.
func (h *Item) deny(w http.ResponseWriter, rec model.AuditRecord, start time.Time, err error) {
	rec.Action = model.AuditAccessDenied
	rec.LatencyMs = time.Since(start).Milliseconds()
	h.auditor.Record(rec)
	response.WriteDomainError(w, err)
}
