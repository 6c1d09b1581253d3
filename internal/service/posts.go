package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/blob"
	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/markdown"
	"github.com/and161185/maru-site/internal/metrics"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/repository"
)

// PostService defines board operations. Mutations expect the caller to have
// passed Authenticate.
type PostService interface {
	List(ctx context.Context) ([]model.Post, error)
	Create(ctx context.Context, in model.PostInput) (*model.Post, error)
	// Get returns the post with its rendered HTML and counts the view.
	Get(ctx context.Context, id uuid.UUID, viewer model.Viewer) (*model.Post, string, error)
	// Update replaces the author fields after deleting blobs the edit orphaned.
	Update(ctx context.Context, id uuid.UUID, in model.PostInput) (*model.Post, error)
	// Delete removes the post and, best effort, every blob it referenced.
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostServiceImpl struct {
	posts   repository.PostRepository
	blobs   blob.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
	render  func(string) (string, error)
}

// NewPostService constructs PostService.
func NewPostService(posts repository.PostRepository, blobs blob.Store, m *metrics.Metrics, log *zap.Logger) *PostServiceImpl {
	return &PostServiceImpl{
		posts:   posts,
		blobs:   blobs,
		metrics: m,
		log:     log,
		now:     time.Now,
		render:  markdown.Render,
	}
}

func validatePost(in model.PostInput) error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return errs.New(errs.KindValidation, "title and content are required")
	}
	return nil
}

// List returns all posts, newest first.
func (s *PostServiceImpl) List(ctx context.Context) ([]model.Post, error) {
	return s.posts.List(ctx)
}

// Create stores a new post; its number is assigned by the store.
func (s *PostServiceImpl) Create(ctx context.Context, in model.PostInput) (*model.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := &model.Post{ID: id, Title: in.Title, Content: in.Content, FileURLs: in.FileURLs}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// Get loads a post, renders its content and applies view deduplication.
// A failure to record the view is logged and does not fail the read.
func (s *PostServiceImpl) Get(ctx context.Context, id uuid.UUID, viewer model.Viewer) (*model.Post, string, error) {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	html, err := s.render(p.Content)
	if err != nil {
		s.log.Warn("render post content", zap.String("post_id", id.String()), zap.Error(err))
		html = p.Content
	}

	now := s.now()
	if shouldCount(p.ViewLogs, viewer, now) {
		entry := model.ViewLog{IP: viewer.IP, UserAgent: viewer.UserAgent, Timestamp: now}
		if err := s.posts.RecordView(ctx, id, entry, now.Add(-ViewWindow)); err != nil {
			s.log.Warn("record post view", zap.String("post_id", id.String()), zap.Error(err))
		} else {
			p.Views++
			p.ViewLogs = append(pruneViews(p.ViewLogs, now), entry)
			s.metrics.PostView()
		}
	}
	return p, html, nil
}

// Update runs the garbage collector in fail-loud mode before persisting.
func (s *PostServiceImpl) Update(ctx context.Context, id uuid.UUID, in model.PostInput) (*model.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	cur, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.collectOrphans(ctx, cur, in); err != nil {
		return nil, err
	}
	return s.posts.Update(ctx, id, in, s.now())
}

// Delete removes blobs best effort and then the record itself.
func (s *PostServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	cur, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	s.collectAll(ctx, cur)
	return s.posts.Delete(ctx, id)
}
