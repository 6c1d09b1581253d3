package service

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/maru-site/internal/blob"
	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/media"
	"github.com/and161185/maru-site/internal/metrics"
)

const (
	filePrefix  = "post-files/"
	imagePrefix = "post-images/"
)

// Upload is one incoming multipart part.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadService stores attachments and inline images.
type UploadService interface {
	// UploadFile stores an attachment under its original name and returns
	// the public URL and the decoded name.
	UploadFile(ctx context.Context, up Upload) (fileURL, originalName string, err error)
	// UploadImage stores an inline image under a random name.
	UploadImage(ctx context.Context, up Upload) (string, error)
}

type UploadServiceImpl struct {
	blobs   blob.Store
	metrics *metrics.Metrics
}

// NewUploadService constructs UploadService.
func NewUploadService(blobs blob.Store, m *metrics.Metrics) *UploadServiceImpl {
	return &UploadServiceImpl{blobs: blobs, metrics: m}
}

// cleanName percent-decodes name and strips any directory part.
func cleanName(name string) string {
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// contentDisposition builds an RFC 5987 attachment header.
func contentDisposition(name string) string {
	return "attachment; filename*=UTF-8''" + url.PathEscape(name)
}

// UploadFile implements UploadService.
func (s *UploadServiceImpl) UploadFile(ctx context.Context, up Upload) (string, string, error) {
	name := cleanName(up.Name)
	if name == "" || up.Body == nil {
		return "", "", errs.New(errs.KindValidation, "file and original name are required")
	}
	u, err := s.blobs.Put(ctx, blob.Object{
		Key:                filePrefix + name,
		ContentType:        up.ContentType,
		ContentDisposition: contentDisposition(name),
		Size:               up.Size,
		Body:               up.Body,
	})
	if err != nil {
		return "", "", errs.Wrap(errs.KindUpstreamStorage, "upload file", err)
	}
	s.metrics.Upload("file")
	return u, name, nil
}

// UploadImage implements UploadService.
func (s *UploadServiceImpl) UploadImage(ctx context.Context, up Upload) (string, error) {
	if up.Body == nil {
		return "", errs.New(errs.KindValidation, "image is required")
	}
	ext := strings.ToLower(path.Ext(cleanName(up.Name)))
	if !media.IsImage("x" + ext) {
		return "", errs.New(errs.KindValidation, "unsupported image type")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	u, err := s.blobs.Put(ctx, blob.Object{
		Key:         imagePrefix + id.String() + ext,
		ContentType: up.ContentType,
		Size:        up.Size,
		Body:        up.Body,
	})
	if err != nil {
		return "", errs.Wrap(errs.KindUpstreamStorage, "upload image", err)
	}
	s.metrics.Upload("image")
	return u, nil
}
