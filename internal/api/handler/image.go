package handler

import (
	"net/http"
	"strconv"
	"time"

	mw "github.com/JMAlloway/Check-sub001/internal/api/middleware"
	"github.com/JMAlloway/Check-sub001/internal/api/request"
	"github.com/JMAlloway/Check-sub001/internal/api/response"
	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/gateway"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// Image serves the authenticated image endpoints.
type Image struct {
	svc         *gateway.Service
	auditor     *audit.Logger
	connectorID string
}

func NewImage(svc *gateway.Service, auditor *audit.Logger, connectorID string) *Image {
	return &Image{svc: svc, auditor: auditor, connectorID: connectorID}
}

// ByHandle godoc
//
//	@Summary		Serve a check image by explicit path handle
//	@Tags			Images
//	@Security		BearerAuth
//	@Param			path query string true "Physical path handle"
//	@Param			side query string true "front or back"
//	@Success		200 {file} binary
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/v1/images/by-handle [get]
func (h *Image) ByHandle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	path := r.URL.Query().Get("path")
	if path == "" {
		h.finish(w, r, start, path, nil, nil, false,
			apperr.New(apperr.CodeInvalidInput, "missing required path"))
		return
	}
	side, err := model.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		h.finish(w, r, start, path, nil, nil, false,
			apperr.Wrap(apperr.CodeInvalidInput, "invalid side", err))
		return
	}

	img, resolved, fromCache, err := h.svc.FetchByHandle(r.Context(), path, side)
	h.finish(w, r, start, path, img, resolved, fromCache, err)
}

// ByItem godoc
//
//	@Summary		Serve a check image by trace number and date
//	@Tags			Images
//	@Security		BearerAuth
//	@Param			trace query string true "Trace number"
//	@Param			date query string true "Item date (YYYY-MM-DD)"
//	@Param			side query string true "front or back"
//	@Success		200 {file} binary
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/v1/images/by-item [get]
func (h *Image) ByItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	trace := r.URL.Query().Get("trace")
	if trace == "" {
		h.finish(w, r, start, trace, nil, nil, false,
			apperr.New(apperr.CodeInvalidInput, "missing required trace"))
		return
	}
	date, err := request.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.finish(w, r, start, trace, nil, nil, false,
			apperr.Wrap(apperr.CodeInvalidInput, "invalid date", err))
		return
	}
	side, err := model.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		h.finish(w, r, start, trace, nil, nil, false,
			apperr.Wrap(apperr.CodeInvalidInput, "invalid side", err))
		return
	}

	img, resolved, fromCache, err := h.svc.FetchByItem(r.Context(), trace, date, side)
	h.finish(w, r, start, trace, img, resolved, fromCache, err)
}

// finish writes the response and emits the single audit record for this
// request, whatever the outcome.
func (h *Image) finish(w http.ResponseWriter, r *http.Request, start time.Time, requested string, img *model.DecodedImage, resolved *model.ResolvedImageRequest, fromCache bool, err error) {
	rec := model.AuditRecord{
		Timestamp:   time.Now().UTC(),
		ConnectorID: h.connectorID,
		Endpoint:    r.URL.Path,
	}
	if claims := mw.GetClaims(r.Context()); claims != nil {
		rec.TenantID = claims.TenantID
		rec.UserID = claims.UserID
	}
	// Hash the resolved path when there is one, else what the caller asked
	// for; the raw value never reaches the record either way.
	if resolved != nil {
		rec.PathHash = audit.HashPath(resolved.PhysicalPath)
	} else if requested != "" {
		rec.PathHash = audit.HashPath(requested)
	}

	if err != nil {
		rec.Action = actionForError(err)
		rec.Allow = false
		rec.LatencyMs = time.Since(start).Milliseconds()
		h.auditor.Record(rec)
		response.WriteDomainError(w, err)
		return
	}

	rec.Action = model.AuditImageServed
	rec.Allow = true
	rec.BytesSent = int64(len(img.PNG))
	rec.LatencyMs = time.Since(start).Milliseconds()
	h.auditor.Record(rec)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-From-Cache", strconv.FormatBool(fromCache))
	w.Header().Set("X-Image-Width", strconv.Itoa(img.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(img.Height))
	w.WriteHeader(http.StatusOK)
	w.Write(img.PNG)
}

func actionForError(err error) string {
	switch apperr.CodeOf(err) {
	// Malformed requests audit as denied: the caller asked for something
	// the gateway refused to serve.
	case apperr.CodeAccessDenied, apperr.CodeAuth, apperr.CodeInvalidInput:
		return model.AuditAccessDenied
	case apperr.CodeNotFound:
		return model.AuditNotFound
	case apperr.CodeDecode, apperr.CodeUpstream:
		return model.AuditDecodeFailed
	default:
		return model.AuditDecodeFailed
	}
}
