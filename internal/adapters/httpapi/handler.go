package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
	httpinfra "superloja-social/internal/infra/http"
	"superloja-social/internal/usecase/plans"
)

// RunService запускает обработку постов.
type RunService interface {
	Run(ctx context.Context, action domain.RunAction) (domain.RunSummary, error)
}

// PlanService обслуживает команды панели управления.
type PlanService interface {
	List(ctx context.Context) ([]domain.Plan, error)
	Get(ctx context.Context, id uuid.UUID) (plans.PlanDetails, error)
	Pause(ctx context.Context, id uuid.UUID) (domain.Plan, error)
	Resume(ctx context.Context, id uuid.UUID) (domain.Plan, error)
	Posts(ctx context.Context, id uuid.UUID) ([]domain.Post, error)
	RetryPost(ctx context.Context, id uuid.UUID) (domain.Post, error)
}

// Handler — HTTP-обработчики раннера и панели.
type Handler struct {
	runner RunService
	plans  PlanService
	log    zerolog.Logger
}

// NewHandler создаёт обработчик.
func NewHandler(runner RunService, plans PlanService, logger zerolog.Logger) *Handler {
	return &Handler{runner: runner, plans: plans, log: logger}
}

// Mount регистрирует маршруты. Все они закрыты токеном администратора, если он задан.
func (h *Handler) Mount(r chi.Router, adminToken string) {
	r.Group(func(r chi.Router) {
		r.Use(httpinfra.BearerAuthMiddleware(adminToken))
		r.Post("/functions/process-weekly-plans", h.processWeeklyPlans)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/plans", h.listPlans)
			r.Get("/plans/{id}", h.getPlan)
			r.Get("/plans/{id}/posts", h.planPosts)
			r.Post("/plans/{id}/pause", h.pausePlan)
			r.Post("/plans/{id}/resume", h.resumePlan)
			r.Post("/posts/{id}/retry", h.retryPost)
		})
	})
}

type runRequest struct {
	Action string `json:"action"`
}

func (h *Handler) processWeeklyPlans(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	// тело необязательно: пустое или битое означает process_all
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Warn().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("тело запуска не разобрано")
	}
	summary, err := h.runner.Run(r.Context(), domain.ParseRunAction(req.Action))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if summary.Results == nil {
		summary.Results = []domain.RunResult{}
	}
	httpinfra.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.plans.List(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Plan{}
	}
	httpinfra.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := h.plans.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) planPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	posts, err := h.plans.Posts(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	httpinfra.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) pausePlan(w http.ResponseWriter, r *http.Request) {
	h.planCommand(w, r, h.plans.Pause)
}

func (h *Handler) resumePlan(w http.ResponseWriter, r *http.Request) {
	h.planCommand(w, r, h.plans.Resume)
}

func (h *Handler) planCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, uuid.UUID) (domain.Plan, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	plan, err := cmd(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, plan)
}

func (h *Handler) retryPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	post, err := h.plans.RetryPost(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, post)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).Msg("ошибка обработки запроса")
	}
	httpinfra.WriteError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, plans.ErrInvalidTransition),
		errors.Is(err, plans.ErrPlanExpired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
