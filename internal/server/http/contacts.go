package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/service"
)

// ContactHandler serves the contact form and its admin view.
type ContactHandler struct {
	contacts service.ContactService
	validate *validator.Validate
	log      *zap.Logger
}

// NewContactHandler creates a contact handler.
func NewContactHandler(contacts service.ContactService, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, validate: validator.New(), log: log}
}

// Routes returns a chi router with contact routes.
func (h *ContactHandler) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Put("/{id}", h.UpdateStatus)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

type contactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
	Status  string `json:"status"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type contactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toContactResponse(c *model.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Message:   c.Message,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// List handles GET /contact.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.contacts.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out := make([]contactResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toContactResponse(&cs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /contact/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

// Create handles POST /contact.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.contacts.Create(r.Context(), model.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
		Status:  model.ContactStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(c))
}

// UpdateStatus handles PUT /contact/{id}.
func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req statusRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.contacts.UpdateStatus(r.Context(), id, model.ContactStatus(req.Status))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "status updated",
		"contact": toContactResponse(c),
	})
}

// Delete handles DELETE /contact/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.contacts.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "contact deleted"})
}
