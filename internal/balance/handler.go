package balance

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnvithShetty10/expense-share/pkg/middleware"
	"github.com/AnvithShetty10/expense-share/pkg/response"
)

// Handler handles HTTP requests for balance operations
type Handler struct {
	service *Service
}

// NewHandler creates a new balance handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for balance endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/{userId}", h.With)

	return r
}

// List handles GET /balances
// @Summary      List my balances
// @Description  Balances against everyone the current user shares expenses with, largest first
// @Tags         balances
// @Produce      json
// @Param        use_cache query bool false "Read and populate the balance cache" default(true)
// @Success      200 {object} response.APIResponse{data=ListResponse}
// @Router       /balances [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	useCache, ok := useCacheParam(r)
	if !ok {
		response.BadRequest(w, "use_cache must be a boolean")
		return
	}

	balances, err := h.service.BalancesFor(r.Context(), userID, useCache)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, NewListResponse(balances))
}

// Summary handles GET /balances/summary
// @Summary      Balance summary
// @Tags         balances
// @Produce      json
// @Param        use_cache query bool false "Read and populate the balance cache" default(true)
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Router       /balances/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	useCache, ok := useCacheParam(r)
	if !ok {
		response.BadRequest(w, "use_cache must be a boolean")
		return
	}

	summary, err := h.service.Summary(r.Context(), userID, useCache)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, summary.ToResponse())
}

// With handles GET /balances/{userId}
// @Summary      Balance with one user
// @Description  Net balance with another user and the expenses you share
// @Tags         balances
// @Produce      json
// @Param        userId path string true "Other user ID"
// @Success      200 {object} response.APIResponse{data=DetailResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /balances/{userId} [get]
func (h *Handler) With(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	otherID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	detail, err := h.service.BalanceWith(r.Context(), userID, otherID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, detail.ToResponse())
}

func useCacheParam(r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("use_cache")
	if raw == "" {
		return true, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
