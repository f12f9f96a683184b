// Package handler exposes the registration endpoints: submission and
// listing for authenticated users, review decisions for registrars and
// admins.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/service"
	"vitalreg/internal/transport/http/shared"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/requestcontext"
)

// reviewerRoles may see every record and decide applications.
var reviewerRoles = []string{"admin", "registrar"}

// Service defines the registration operations the handler depends on.
type Service interface {
	SubmitBirth(ctx context.Context, reg *models.BirthRegistration, submitterID string) (*models.BirthRegistration, error)
	SubmitDeath(ctx context.Context, reg *models.DeathRegistration, submitterID string) (*models.DeathRegistration, error)
	GetBirth(ctx context.Context, id int64) (*models.BirthRegistration, error)
	GetDeath(ctx context.Context, id int64) (*models.DeathRegistration, error)
	ListBirths(ctx context.Context) ([]*models.BirthRegistration, error)
	ListBirthsBySubmitter(ctx context.Context, submitterID string) ([]*models.BirthRegistration, error)
	ListDeaths(ctx context.Context) ([]*models.DeathRegistration, error)
	ListDeathsBySubmitter(ctx context.Context, submitterID string) ([]*models.DeathRegistration, error)
	DecideBirth(ctx context.Context, id int64, status models.Status, reviewerID, notes string) (*models.BirthRegistration, error)
	DecideDeath(ctx context.Context, id int64, status models.Status, reviewerID, notes string) (*models.DeathRegistration, error)
	PendingApplications(ctx context.Context) ([]service.PendingApplication, error)
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registration handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the endpoints available to any authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/birth-registrations", h.HandleSubmitBirth)
	r.Get("/api/birth-registrations", h.HandleListBirths)
	r.Get("/api/birth-registrations/{id}", h.HandleGetBirth)
	r.Post("/api/death-registrations", h.HandleSubmitDeath)
	r.Get("/api/death-registrations", h.HandleListDeaths)
	r.Get("/api/death-registrations/{id}", h.HandleGetDeath)
}

// RegisterReview mounts the reviewer endpoints. The router applies the
// admin/registrar role gate to this group.
func (h *Handler) RegisterReview(r chi.Router) {
	r.Patch("/api/birth-registrations/{id}/status", h.HandleDecideBirth)
	r.Patch("/api/death-registrations/{id}/status", h.HandleDecideDeath)
	r.Get("/api/pending-applications", h.HandlePendingApplications)
}

// HandleSubmitBirth handles POST /api/birth-registrations.
func (h *Handler) HandleSubmitBirth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[BirthRegistrationRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.SubmitBirth(ctx, req.ToModel(), requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "submit birth registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, NewBirthRegistrationResponse(reg))
}

// HandleSubmitDeath handles POST /api/death-registrations.
func (h *Handler) HandleSubmitDeath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[DeathRegistrationRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.SubmitDeath(ctx, req.ToModel(), requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "submit death registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, NewDeathRegistrationResponse(reg))
}

// HandleListBirths handles GET /api/birth-registrations. Reviewers see all
// records; everyone else sees only their own submissions.
func (h *Handler) HandleListBirths(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		regs []*models.BirthRegistration
		err  error
	)
	if isReviewer(ctx) {
		regs, err = h.service.ListBirths(ctx)
	} else {
		regs, err = h.service.ListBirthsBySubmitter(ctx, requestcontext.UserID(ctx))
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := make([]BirthRegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, NewBirthRegistrationResponse(reg))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// HandleListDeaths handles GET /api/death-registrations.
func (h *Handler) HandleListDeaths(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		regs []*models.DeathRegistration
		err  error
	)
	if isReviewer(ctx) {
		regs, err = h.service.ListDeaths(ctx)
	} else {
		regs, err = h.service.ListDeathsBySubmitter(ctx, requestcontext.UserID(ctx))
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := make([]DeathRegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, NewDeathRegistrationResponse(reg))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetBirth handles GET /api/birth-registrations/{id}. Non-reviewers
// get a not-found for records they did not submit, so record ids leak
// nothing.
func (h *Handler) HandleGetBirth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.GetBirth(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !isReviewer(ctx) && reg.SubmittedBy != requestcontext.UserID(ctx) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Birth registration not found"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, NewBirthRegistrationResponse(reg))
}

// HandleGetDeath handles GET /api/death-registrations/{id}.
func (h *Handler) HandleGetDeath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.GetDeath(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !isReviewer(ctx) && reg.SubmittedBy != requestcontext.UserID(ctx) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Death registration not found"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, NewDeathRegistrationResponse(reg))
}

// HandleDecideBirth handles PATCH /api/birth-registrations/{id}/status.
func (h *Handler) HandleDecideBirth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, err := shared.Decode[StatusUpdateRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.DecideBirth(ctx, id, models.Status(req.Status), requestcontext.UserID(ctx), req.ReviewNotes)
	if err != nil {
		h.logger.InfoContext(ctx, "birth registration decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", id,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, NewBirthRegistrationResponse(reg))
}

// HandleDecideDeath handles PATCH /api/death-registrations/{id}/status.
func (h *Handler) HandleDecideDeath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, err := shared.Decode[StatusUpdateRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.DecideDeath(ctx, id, models.Status(req.Status), requestcontext.UserID(ctx), req.ReviewNotes)
	if err != nil {
		h.logger.InfoContext(ctx, "death registration decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", id,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, NewDeathRegistrationResponse(reg))
}

// HandlePendingApplications handles GET /api/pending-applications.
func (h *Handler) HandlePendingApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apps, err := h.service.PendingApplications(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := make([]PendingApplicationResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, NewPendingApplicationResponse(app))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func isReviewer(ctx context.Context) bool {
	return slices.Contains(reviewerRoles, requestcontext.UserRole(ctx))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "Invalid registration id")
	}
	return id, nil
}
