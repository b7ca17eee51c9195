/*
handlers.go - HTTP handlers for the leave workflow

PURPOSE:
  Exposes the leave engine over REST. Handles HTTP request/response,
  JSON serialization, input validation, and delegates to the leave
  service. No business rules live here.

ENDPOINTS:
  Profiles:
    GET    /api/profiles/{id}           Profile details
    PUT    /api/profiles/{id}           Edit own profile
    GET    /api/profiles/{id}/requests  Request history (self or admin)

  Requests:
    POST   /api/requests                Submit leave request (for the actor)
    GET    /api/requests/pending        Pending review queue (admin)
    POST   /api/requests/{id}/approve   Approve (admin)
    POST   /api/requests/{id}/reject    Reject (admin)

  Holidays:
    GET    /api/holidays                Blocked dates for the date picker

IDENTITY:
  The caller is identified by the X-Actor-ID and X-Actor-Role headers,
  filled in by the identity layer in front of this service. Handlers
  trust the headers; they enforce authorization (self vs admin), not
  authentication.

ERROR MAPPING:
  - 400: malformed input, invalid range, allowance violations
  - 403: actor lacks the required role or is not the profile owner
  - 404: unknown profile or request
  - 409: deciding a request that already left pending
  - 503: store unavailable
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/crewdesk/leavedesk/datemath"
	"github.com/crewdesk/leavedesk/holiday"
	"github.com/crewdesk/leavedesk/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *leave.Service
	Calendar *holiday.Calendar

	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewHandler creates a handler around the leave service. calendar may be
// holiday.Empty() when no feed is configured.
func NewHandler(service *leave.Service, calendar *holiday.Calendar, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Service:  service,
		Calendar: calendar,
		validate: validator.New(),
		log:      log,
	}
}

// actorFrom reads the caller identity from the request headers. A
// missing X-Actor-ID means an unauthenticated call.
func actorFrom(r *http.Request) (leave.Actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		return leave.Actor{}, false
	}
	role := leave.RoleStandard
	if r.Header.Get("X-Actor-Role") == string(leave.RoleAdmin) {
		role = leave.RoleAdmin
	}
	return leave.Actor{ID: leave.ProfileID(id), Role: role}, true
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// GetProfile returns a single profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}
	id := leave.ProfileID(chi.URLParam(r, "id"))

	profile, err := h.Service.Profile(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err, "get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile applies a partial edit to the actor's own profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}
	id := leave.ProfileID(chi.URLParam(r, "id"))
	if actor.ID != id {
		writeError(w, http.StatusForbidden, "Profiles can only be edited by their owner", nil)
		return
	}

	var body UpdateProfileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	upd := leave.ProfileUpdate{
		About:     body.About,
		Languages: body.Languages,
		ImageURL:  body.ImageURL,
	}
	if body.StartedAt != nil {
		startedAt, err := datemath.ParseDate(*body.StartedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startedAt date (use YYYY-MM-DD)", err)
			return
		}
		upd.EmploymentStartDate = &startedAt
	}

	profile, err := h.Service.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		h.writeDomainError(w, r, err, "update profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ListOwnerRequests returns one employee's request history, newest
// first. Visible to the owner and to admins.
func (h *Handler) ListOwnerRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}
	owner := leave.ProfileID(chi.URLParam(r, "id"))
	if actor.ID != owner && !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "Request history is visible to the owner and admins only", nil)
		return
	}

	requests, err := h.Service.ListByOwner(r.Context(), owner)
	if err != nil {
		h.writeDomainError(w, r, err, "list owner requests")
		return
	}

	dtos := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		dtos = append(dtos, *toRequestResponse(&requests[i], ""))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest submits a leave request for the actor.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}

	var body SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rangeStart, err := datemath.ParseDate(body.RangeStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rangeStart date (use YYYY-MM-DD)", err)
		return
	}
	rangeEnd, err := datemath.ParseDate(body.RangeEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rangeEnd date (use YYYY-MM-DD)", err)
		return
	}

	request, pending, err := h.Service.Submit(r.Context(), actor, rangeStart, rangeEnd, body.Message)
	if err != nil {
		h.writeDomainError(w, r, err, "submit request")
		return
	}

	writeJSON(w, http.StatusCreated, MutationResponse{
		Request: toRequestResponse(request, ""),
		Pending: toPendingResponses(pending),
	})
}

// ListPendingRequests returns the admin review queue in submission order.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "Only admins can review pending requests", nil)
		return
	}

	pending, err := h.Service.ListPending(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "list pending requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pending": toPendingResponses(pending)})
}

// ApproveRequest approves a pending request and debits the owner's
// allowance.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// RejectRequest rejects a pending request.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID header", nil)
		return
	}
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "Only admins can decide requests", nil)
		return
	}
	id := leave.RequestID(chi.URLParam(r, "id"))

	request, pending, err := h.Service.Decide(r.Context(), actor, id, approve)
	if err != nil {
		h.writeDomainError(w, r, err, "decide request")
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{
		Request: toRequestResponse(request, ""),
		Pending: toPendingResponses(pending),
	})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the loaded public holidays so the client can
// grey out blocked dates. Weekends are derivable client side.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toHolidaysResponse(h.Calendar.Holidays()))
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError translates domain errors into HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case leave.IsNotFound(err):
		writeErrorKind(w, http.StatusNotFound, "Not found", "not_found", err)
	case errors.Is(err, leave.ErrInvalidTransition):
		writeErrorKind(w, http.StatusConflict, "Request already decided", "invalid_transition", err)
	case errors.Is(err, leave.ErrEmptyAllowance):
		writeErrorKind(w, http.StatusBadRequest, "No remaining allowance", "empty_allowance", err)
	case errors.Is(err, leave.ErrAllowanceExceeded):
		writeErrorKind(w, http.StatusBadRequest, "Requested range exceeds remaining allowance", "allowance_exceeded", err)
	case errors.Is(err, leave.ErrInvalidRange):
		writeErrorKind(w, http.StatusBadRequest, "End date is before start date", "invalid_range", err)
	case errors.Is(err, leave.ErrStoreUnavailable):
		h.log.WithError(err).WithField("op", op).Error("store unavailable")
		writeErrorKind(w, http.StatusServiceUnavailable, "Storage unavailable, try again", "store_unavailable", nil)
	default:
		h.log.WithError(err).WithField("op", op).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Error = message + ": " + err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorKind(w http.ResponseWriter, status int, message, kind string, err error) {
	resp := errorResponse{Error: message, Kind: kind}
	if err != nil {
		resp.Error = message + ": " + err.Error()
	}
	writeJSON(w, status, resp)
}
