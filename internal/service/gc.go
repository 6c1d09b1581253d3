package service

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/media"
	"github.com/and161185/maru-site/internal/model"
)

// keysFor maps URLs to blob keys, skipping URLs that belong to another host.
func (s *PostServiceImpl) keysFor(urls []string) []string {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		key, ok := s.blobs.KeyFromURL(u)
		if !ok {
			s.log.Debug("skip foreign url", zap.String("url", u))
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (s *PostServiceImpl) deleteKeys(ctx context.Context, keys []string) error {
	var all error
	for _, key := range keys {
		err := s.blobs.Delete(ctx, key)
		s.metrics.BlobDelete(err)
		if err != nil {
			all = multierr.Append(all, fmt.Errorf("%s: %w", key, err))
		}
	}
	return all
}

// collectOrphans deletes the blobs an edit stops referencing. Any failure
// fails the edit.
func (s *PostServiceImpl) collectOrphans(ctx context.Context, cur *model.Post, next model.PostInput) error {
	urls := media.Orphaned(cur.Content, cur.FileURLs, next.Content, next.FileURLs)
	if len(urls) == 0 {
		return nil
	}
	if err := s.deleteKeys(ctx, s.keysFor(urls)); err != nil {
		return errs.Wrap(errs.KindUpstreamStorage, "delete orphaned files", err)
	}
	return nil
}

// collectAll deletes every blob a post references. Failures are logged.
func (s *PostServiceImpl) collectAll(ctx context.Context, cur *model.Post) {
	keys := s.keysFor(media.All(cur.Content, cur.FileURLs))
	if err := s.deleteKeys(ctx, keys); err != nil {
		failed := multierr.Errors(err)
		s.log.Warn("delete post files",
			zap.String("post_id", cur.ID.String()),
			zap.Int("failed", len(failed)),
			zap.Int("total", len(keys)),
			zap.Error(err),
		)
	}
}
