/*
dto.go - Request/response shapes for the HTTP API

PURPOSE:
  JSON boundary types, kept separate from the domain types so the wire
  format can evolve without touching the engine. Dates travel as
  YYYY-MM-DD strings; instants as RFC3339.

VALIDATION:
  Inbound DTOs carry go-playground/validator tags and are validated in
  the handlers before any domain call. Range semantics (end before
  start, allowance checks) stay in the leave package; the tags only
  reject structurally broken payloads.

SEE ALSO:
  - handlers.go: where these are (de)serialized and validated
*/
package api

import (
	"time"

	"github.com/crewdesk/leavedesk/datemath"
	"github.com/crewdesk/leavedesk/leave"
)

// =============================================================================
// INBOUND
// =============================================================================

// UpdateProfileBody carries the editable profile fields. Absent fields
// are left unchanged.
type UpdateProfileBody struct {
	About     *string `json:"about"`
	Languages *string `json:"languages"`
	ImageURL  *string `json:"imageUrl" validate:"omitempty,url"`
	StartedAt *string `json:"startedAt" validate:"omitempty,datetime=2006-01-02"`
}

// SubmitRequestBody carries a new leave request.
type SubmitRequestBody struct {
	RangeStart string `json:"rangeStart" validate:"required,datetime=2006-01-02"`
	RangeEnd   string `json:"rangeEnd" validate:"required,datetime=2006-01-02"`
	Message    string `json:"message" validate:"max=500"`
}

// =============================================================================
// OUTBOUND
// =============================================================================

type ProfileResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	About              string `json:"about"`
	Languages          string `json:"languages"`
	ImageURL           string `json:"imageUrl"`
	StartedAt          string `json:"startedAt,omitempty"`
	RemainingAllowance string `json:"remainingAllowance"`
}

type RequestResponse struct {
	ID         string `json:"id"`
	OwnerID    string `json:"ownerId"`
	OwnerName  string `json:"ownerName,omitempty"`
	RangeStart string `json:"rangeStart"`
	RangeEnd   string `json:"rangeEnd"`
	Days       int    `json:"days"`
	Message    string `json:"message"`
	Status     string `json:"status"`
	DecidedBy  string `json:"decidedBy,omitempty"`
	DecidedAt  string `json:"decidedAt,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// MutationResponse pairs the mutated request with the refreshed pending
// queue so an admin view re-renders from a single response.
type MutationResponse struct {
	Request *RequestResponse  `json:"request"`
	Pending []RequestResponse `json:"pending"`
}

type HolidaysResponse struct {
	Holidays []string `json:"holidays"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProfileResponse(p *leave.ProfileAccount) *ProfileResponse {
	out := &ProfileResponse{
		ID:                 string(p.ID),
		Name:               p.Name,
		Email:              p.Email,
		Role:               string(p.Role),
		About:              p.About,
		Languages:          p.Languages,
		ImageURL:           p.ImageURL,
		RemainingAllowance: p.RemainingAllowance.String(),
	}
	if !p.EmploymentStartDate.IsZero() {
		out.StartedAt = p.EmploymentStartDate.String()
	}
	return out
}

func toRequestResponse(r *leave.LeaveRequest, ownerName string) *RequestResponse {
	out := &RequestResponse{
		ID:         string(r.ID),
		OwnerID:    string(r.OwnerID),
		OwnerName:  ownerName,
		RangeStart: r.RangeStart.String(),
		RangeEnd:   r.RangeEnd.String(),
		Days:       r.DayCount(),
		Message:    r.Message,
		Status:     string(r.Status),
		DecidedBy:  string(r.DecidedBy),
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		out.DecidedAt = r.DecidedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toPendingResponses(pending []leave.PendingRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(pending))
	for i := range pending {
		out = append(out, *toRequestResponse(&pending[i].LeaveRequest, pending[i].OwnerName))
	}
	return out
}

func toHolidaysResponse(dates []datemath.Date) *HolidaysResponse {
	out := &HolidaysResponse{Holidays: make([]string, 0, len(dates))}
	for _, d := range dates {
		out.Holidays = append(out.Holidays, d.String())
	}
	return out
}
