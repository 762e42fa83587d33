package expense

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnvithShetty10/expense-share/internal/user"
	"github.com/AnvithShetty10/expense-share/pkg/middleware"
	"github.com/AnvithShetty10/expense-share/pkg/request"
	"github.com/AnvithShetty10/expense-share/pkg/response"
)

// IdempotencyHeader is read on POST /expenses
const IdempotencyHeader = "Idempotency-Key"

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create an expense and split it with the EQUAL, PERCENTAGE or MANUAL strategy
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateExpenseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	e, err := h.service.Create(r.Context(), userID, &req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// List handles GET /expenses
// @Summary      List my expenses
// @Description  Paginated expenses of the current user, newest first
// @Tags         expenses
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Param        start_date query string false "Earliest expense date (YYYY-MM-DD)"
// @Param        end_date query string false "Latest expense date (YYYY-MM-DD)"
// @Param        group_name query string false "Group name"
// @Success      200 {object} response.APIResponse{data=[]ListItemResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	page, pageSize = user.Paginate(page, pageSize)

	f := Filter{Limit: pageSize, Offset: (page - 1) * pageSize}
	var err error
	if f.StartDate, err = parseDateParam(q.Get("start_date")); err != nil {
		response.BadRequest(w, "Invalid start_date, expected YYYY-MM-DD")
		return
	}
	if f.EndDate, err = parseDateParam(q.Get("end_date")); err != nil {
		response.BadRequest(w, "Invalid end_date, expected YYYY-MM-DD")
		return
	}
	if g := q.Get("group_name"); g != "" {
		f.GroupName = &g
	}

	items, total, err := h.service.List(r.Context(), userID, f)
	if err != nil {
		response.FromError(w, err)
		return
	}

	itemResponses := make([]*ListItemResponse, len(items))
	for i := range items {
		itemResponses[i] = items[i].ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, itemResponses, response.NewMeta(page, pageSize, total))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with all its participants. Only participants may view it.
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.pathAndUser(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Update handles PUT /expenses/{id}
// @Summary      Update an expense
// @Description  Replace an expense and its participants. Only the creator may update it.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Expense update request"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.pathAndUser(w, r)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	e, err := h.service.Update(r.Context(), id, userID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense. Only the creator may delete it.
// @Tags         expenses
// @Param        id path string true "Expense ID"
// @Success      204
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.pathAndUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *Handler) pathAndUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return uuid.Nil, uuid.Nil, false
	}
	return id, userID, true
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
