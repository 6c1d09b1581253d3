package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/maru-site/internal/blob"
	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/repository"
	"github.com/and161185/maru-site/internal/repository/memory"
)

const cdn = "https://cdn.test/"

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
	failAll bool
	fail    map[string]bool
	puts    []blob.Object
	putErr  error
}

var _ blob.Store = (*fakeBlobs)(nil)

func (f *fakeBlobs) Put(_ context.Context, obj blob.Object) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, obj)
	return cdn + obj.Key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.failAll || f.fail[key] {
		return errors.New("s3 unavailable")
	}
	return nil
}

func (f *fakeBlobs) KeyFromURL(raw string) (string, bool) {
	if !strings.HasPrefix(raw, cdn) {
		return "", false
	}
	return strings.TrimPrefix(raw, cdn), true
}

// flakyViews fails RecordView but otherwise delegates.
type flakyViews struct {
	repository.PostRepository
}

func (flakyViews) RecordView(context.Context, uuid.UUID, model.ViewLog, time.Time) error {
	return errors.New("write conflict")
}

func newPosts(t *testing.T) (*PostServiceImpl, *fakeBlobs) {
	t.Helper()
	b := &fakeBlobs{fail: map[string]bool{}}
	return NewPostService(memory.New().Posts(), b, nil, zaptest.NewLogger(t)), b
}

func mustCreate(t *testing.T, s *PostServiceImpl, in model.PostInput) *model.Post {
	t.Helper()
	p, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	return p
}

func TestPosts_CreateValidation(t *testing.T) {
	t.Parallel()

	s, _ := newPosts(t)
	_, err := s.Create(context.Background(), model.PostInput{Title: " ", Content: "x"})
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.Create(context.Background(), model.PostInput{Title: "x"})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestPosts_ConcurrentCreateNumbers(t *testing.T) {
	t.Parallel()

	s, _ := newPosts(t)
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Create(context.Background(), model.PostInput{Title: "t", Content: "c"})
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[p.Number] {
				t.Errorf("duplicate number %d", p.Number)
			}
			seen[p.Number] = true
		}()
	}
	wg.Wait()
	require.Len(t, seen, n)

	next := mustCreate(t, s, model.PostInput{Title: "t", Content: "c"})
	require.Equal(t, int64(n+1), next.Number)
}

func TestPosts_GetRendersAndDedupsViews(t *testing.T) {
	t.Parallel()

	s, _ := newPosts(t)
	p := mustCreate(t, s, model.PostInput{Title: "t", Content: "**bold**"})
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	reader := model.Viewer{IP: "1.1.1.1", UserAgent: "firefox"}

	got, html, err := s.Get(ctx, p.ID, reader)
	require.NoError(t, err)
	require.Contains(t, html, "<strong>bold</strong>")
	require.Equal(t, int64(1), got.Views)

	now = now.Add(23 * time.Hour)
	got, _, err = s.Get(ctx, p.ID, reader)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Views)

	got, _, err = s.Get(ctx, p.ID, model.Viewer{IP: "1.1.1.1", UserAgent: "chrome"})
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Views)

	now = now.Add(2 * time.Hour)
	got, _, err = s.Get(ctx, p.ID, reader)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Views)
	// the first firefox entry fell out of the window and was pruned
	require.Len(t, got.ViewLogs, 2)

	stored, err := s.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.ViewLogs, 2)
	require.Equal(t, "chrome", stored.ViewLogs[0].UserAgent)
}

func TestPosts_GetRenderFallbackAndViewFailure(t *testing.T) {
	t.Parallel()

	repo := memory.New().Posts()
	s := NewPostService(flakyViews{repo}, &fakeBlobs{}, nil, zaptest.NewLogger(t))
	s.render = func(string) (string, error) { return "", errors.New("bad markup") }
	p := mustCreate(t, s, model.PostInput{Title: "t", Content: "raw *content*"})

	got, html, err := s.Get(context.Background(), p.ID, model.Viewer{IP: "1", UserAgent: "u"})
	require.NoError(t, err)
	require.Equal(t, "raw *content*", html)
	require.Zero(t, got.Views)

	_, _, err = s.Get(context.Background(), uuid.Must(uuid.NewV4()), model.Viewer{})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPosts_UpdateDeletesDroppedImageOnce(t *testing.T) {
	t.Parallel()

	s, b := newPosts(t)
	p := mustCreate(t, s, model.PostInput{
		Title:   "t",
		Content: "![a](" + cdn + "post-images/a.png) ![b](" + cdn + "post-images/b.png)",
	})

	upd, err := s.Update(context.Background(), p.ID, model.PostInput{
		Title:   "t2",
		Content: "![b](" + cdn + "post-images/b.png)",
	})
	require.NoError(t, err)
	require.Equal(t, "t2", upd.Title)
	require.Equal(t, []string{"post-images/a.png"}, b.deleted)
}

func TestPosts_UpdateKeepingURLsDeletesNothing(t *testing.T) {
	t.Parallel()

	s, b := newPosts(t)
	in := model.PostInput{
		Title:    "t",
		Content:  "![a](" + cdn + "post-images/a.png) ![x](https://elsewhere.io/x.png)",
		FileURLs: []string{cdn + "post-files/f.pdf"},
	}
	p := mustCreate(t, s, in)

	in.Title = "renamed"
	_, err := s.Update(context.Background(), p.ID, in)
	require.NoError(t, err)
	require.Empty(t, b.deleted)

	in.Content = "no images"
	in.FileURLs = nil
	_, err = s.Update(context.Background(), p.ID, in)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"post-images/a.png", "post-files/f.pdf"}, b.deleted)
}

func TestPosts_UpdateFailsLoudOnStorageError(t *testing.T) {
	t.Parallel()

	s, b := newPosts(t)
	p := mustCreate(t, s, model.PostInput{Title: "t", Content: "c", FileURLs: []string{cdn + "post-files/a.pdf", cdn + "post-files/b.pdf"}})
	b.fail["post-files/a.pdf"] = true

	_, err := s.Update(context.Background(), p.ID, model.PostInput{Title: "new", Content: "c"})
	require.ErrorIs(t, err, errs.ErrUpstreamStorage)
	require.ErrorContains(t, err, "post-files/a.pdf")

	stored, err := s.posts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "t", stored.Title)
	require.Len(t, stored.FileURLs, 2)
}

func TestPosts_UpdateMissingAndInvalid(t *testing.T) {
	t.Parallel()

	s, _ := newPosts(t)
	_, err := s.Update(context.Background(), uuid.Must(uuid.NewV4()), model.PostInput{Title: "t", Content: "c"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.Update(context.Background(), uuid.Must(uuid.NewV4()), model.PostInput{})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestPosts_DeleteRemovesRecordEvenIfEveryDeletionFails(t *testing.T) {
	t.Parallel()

	s, b := newPosts(t)
	p := mustCreate(t, s, model.PostInput{
		Title:    "t",
		Content:  "![a](" + cdn + "post-images/a.png)",
		FileURLs: []string{cdn + "post-files/f.pdf", cdn + "post-images/a.png"},
	})
	b.failAll = true

	require.NoError(t, s.Delete(context.Background(), p.ID))
	require.Equal(t, []string{"post-images/a.png", "post-files/f.pdf"}, b.deleted)

	_, err := s.posts.Get(context.Background(), p.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.ErrorIs(t, s.Delete(context.Background(), p.ID), errs.ErrNotFound)
}

func TestPosts_ListNewestFirst(t *testing.T) {
	t.Parallel()

	s, _ := newPosts(t)
	mustCreate(t, s, model.PostInput{Title: "a", Content: "c"})
	time.Sleep(2 * time.Millisecond)
	mustCreate(t, s, model.PostInput{Title: "b", Content: "c"})

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].Title)
}

func TestShouldCount(t *testing.T) {
	t.Parallel()

	now := time.Now()
	v := model.Viewer{IP: "ip", UserAgent: "ua"}
	logs := []model.ViewLog{{IP: "ip", UserAgent: "ua", Timestamp: now.Add(-25 * time.Hour)}}
	require.True(t, shouldCount(logs, v, now))
	logs = append(logs, model.ViewLog{IP: "ip", UserAgent: "ua", Timestamp: now.Add(-time.Hour)})
	require.False(t, shouldCount(logs, v, now))
	require.True(t, shouldCount(logs, model.Viewer{IP: "other", UserAgent: "ua"}, now))
	require.True(t, shouldCount(nil, v, now))
}

func TestPruneViews(t *testing.T) {
	t.Parallel()

	now := time.Now()
	logs := []model.ViewLog{
		{IP: "old", Timestamp: now.Add(-ViewWindow)},
		{IP: "new", Timestamp: now.Add(-time.Minute)},
	}
	got := pruneViews(logs, now)
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].IP)
	require.Empty(t, pruneViews(nil, now))
}
