package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/service"
)

// DefaultMaxUpload caps multipart bodies when no limit is configured.
const DefaultMaxUpload = 20 << 20

// UploadHandler accepts attachments and inline images.
type UploadHandler struct {
	uploads service.UploadService
	log     *zap.Logger
	max     int64
}

// NewUploadHandler creates an upload handler accepting bodies up to max bytes.
func NewUploadHandler(uploads service.UploadService, max int64, log *zap.Logger) *UploadHandler {
	if max <= 0 {
		max = DefaultMaxUpload
	}
	return &UploadHandler{uploads: uploads, log: log, max: max}
}

// Routes returns a chi router with upload routes. Every route needs a session.
func (h *UploadHandler) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireSession)
	r.Post("/file", h.File)
	r.Post("/image", h.Image)
	return r
}

// part reads the named multipart field. The caller closes the file.
func (h *UploadHandler) part(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.max)
	if err := r.ParseMultipartForm(h.max); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, errs.Wrap(errs.KindValidation, "file too large", err)
		}
		return nil, nil, errs.Wrap(errs.KindValidation, "invalid multipart body", err)
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindValidation, "no file uploaded", err)
	}
	return f, hdr, nil
}

func contentTypeOf(hdr *multipart.FileHeader) string {
	if ct := hdr.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// File handles POST /upload/file. The optional originalName field
// overrides the multipart filename.
func (h *UploadHandler) File(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := h.part(w, r, "file")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	defer f.Close()

	name := r.FormValue("originalName")
	if name == "" {
		name = hdr.Filename
	}
	url, stored, err := h.uploads.UploadFile(r.Context(), service.Upload{
		Name:        name,
		ContentType: contentTypeOf(hdr),
		Size:        hdr.Size,
		Body:        f,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fileUrl": url, "originalName": stored})
}

// Image handles POST /upload/image.
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := h.part(w, r, "image")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	defer f.Close()

	url, err := h.uploads.UploadImage(r.Context(), service.Upload{
		Name:        hdr.Filename,
		ContentType: contentTypeOf(hdr),
		Size:        hdr.Size,
		Body:        f,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}
