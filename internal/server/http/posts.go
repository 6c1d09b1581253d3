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

// PostHandler serves the board.
type PostHandler struct {
	posts    service.PostService
	validate *validator.Validate
	log      *zap.Logger
}

// NewPostHandler creates a post handler.
func NewPostHandler(posts service.PostService, log *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, validate: validator.New(), log: log}
}

// Routes returns a chi router with post routes. Reads are public.
func (h *PostHandler) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

type postRequest struct {
	Title   string   `json:"title" validate:"required"`
	Content string   `json:"content" validate:"required"`
	FileURL []string `json:"fileUrl" validate:"omitempty,dive,url"`
}

func (p postRequest) input() model.PostInput {
	return model.PostInput{Title: p.Title, Content: p.Content, FileURLs: p.FileURL}
}

// postResponse is the wire form of a post. View logs stay server-side.
type postResponse struct {
	ID              uuid.UUID `json:"id"`
	Number          int64     `json:"number"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	FileURL         []string  `json:"fileUrl"`
	Views           int64     `json:"views"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	RenderedContent string    `json:"renderedContent,omitempty"`
}

func toPostResponse(p *model.Post) postResponse {
	files := p.FileURLs
	if files == nil {
		files = []string{}
	}
	return postResponse{
		ID:        p.ID,
		Number:    p.Number,
		Title:     p.Title,
		Content:   p.Content,
		FileURL:   files,
		Views:     p.Views,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// List handles GET /post.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPostResponse(&posts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /post.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, err := h.posts.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

// Get handles GET /post/{id} and counts the view.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	viewer := model.Viewer{IP: clientIP(r), UserAgent: r.UserAgent()}
	p, html, err := h.posts.Get(r.Context(), id, viewer)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	resp := toPostResponse(p)
	resp.RenderedContent = html
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /post/{id}.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req postRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, err := h.posts.Update(r.Context(), id, req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

// Delete handles DELETE /post/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.posts.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "post deleted"})
}
