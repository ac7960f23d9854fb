package handlers

import (
	"net/http"
	"strings"
	"time"
	"travel-route-service/internal/api/dto"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/ports"
	"travel-route-service/internal/services"

	"github.com/go-chi/chi/v5"
)

// TripHandler exposes the estimation engine: route computation,
// eligibility and the authorization workflow for one draft key.
type TripHandler struct {
	Engine        *services.Engine
	Audit         ports.AuditReader
	DefaultOrigin domain.LocationDescriptor

	now func() time.Time
}

func NewTripHandler(engine *services.Engine, audit ports.AuditReader, defaultOrigin domain.LocationDescriptor) *TripHandler {
	return &TripHandler{
		Engine:        engine,
		Audit:         audit,
		DefaultOrigin: defaultOrigin,
		now:           utcNow,
	}
}

func draftKey(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "key"))
}

// Route computes the route and cost of a draft without touching any state.
func (h *TripHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req dto.DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.toDraft("", req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.Engine.ComputeRoute(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, "compute route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(plan))
}

func (h *TripHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	var req dto.EligibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID <= 0 {
		writeError(w, r, http.StatusBadRequest, "client_id is required")
		return
	}

	var draft domain.TripDraft
	if req.Draft != nil {
		d, err := h.toDraft("", *req.Draft)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		plan, err := h.Engine.ComputeRoute(r.Context(), d)
		if err != nil {
			writeServiceError(w, r, "compute route", err)
			return
		}
		draft = plan.Draft
	}

	report, err := h.Engine.CheckEligibility(r.Context(), req.ClientID, draft)
	if err != nil {
		writeServiceError(w, r, "check eligibility", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toEligibilityResponse(report))
}

func (h *TripHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key := draftKey(r)

	var req dto.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.toDraft(key, req.Draft)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.Engine.Submit(r.Context(), draft, req.IsEdit)
	if err != nil {
		writeServiceError(w, r, "submit draft", err)
		return
	}

	res := dto.SubmitResponse{
		Route:    toRouteResponse(sub.Plan),
		Decision: toDecisionResponse(sub.Decision),
	}
	if sub.Eligibility != nil {
		e := toEligibilityResponse(*sub.Eligibility)
		res.Eligibility = &e
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *TripHandler) Decision(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Decision(r.Context(), draftKey(r))
	if err != nil {
		writeServiceError(w, r, "get decision", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDecisionResponse(d))
}

func (h *TripHandler) ConfirmAir(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor == "" {
		writeError(w, r, http.StatusBadRequest, ActorHeader+" header is required")
		return
	}

	d, err := h.Engine.ConfirmAirTravel(r.Context(), draftKey(r), actor)
	if err != nil {
		writeServiceError(w, r, "confirm air travel", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDecisionResponse(d))
}

func (h *TripHandler) Override(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor == "" {
		writeError(w, r, http.StatusBadRequest, ActorHeader+" header is required")
		return
	}

	var req dto.OverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.Engine.OverrideEligibility(r.Context(), draftKey(r), req.Justification, actor)
	if err != nil {
		writeServiceError(w, r, "override eligibility", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDecisionResponse(d))
}

func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Cancel(r.Context(), draftKey(r))
	if err != nil {
		writeServiceError(w, r, "cancel draft", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDecisionResponse(d))
}

// Persist takes the draft again so the engine can verify the decision was
// made for the same distance.
func (h *TripHandler) Persist(w http.ResponseWriter, r *http.Request) {
	var req dto.DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.toDraft(draftKey(r), req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.Engine.Persist(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, "persist draft", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toDecisionResponse(d))
}

func (h *TripHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	key := draftKey(r)

	entries, err := h.Audit.ListAuditLog(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, "list audit log", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.AuditLogResponse{DraftKey: key, Entries: entries})
}
