package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/service"
	"github.com/and161185/maru-site/internal/token"
)

type stubAuth struct {
	service.AuthService
	user *model.User
	err  error
}

func (s stubAuth) Authenticate(context.Context, string) (*model.User, error) {
	return s.user, s.err
}

func withCookie(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: token.CookieName, Value: "t"})
	return r
}

func TestRequireSession_ExpiredClearsCookie(t *testing.T) {
	auth := stubAuth{err: errs.New(errs.KindSessionExpired, "session expired")}
	h := RequireSession(auth, true, zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/post", nil)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	sc := rec.Header().Get("Set-Cookie")
	require.Contains(t, sc, "token=;")
	require.Contains(t, sc, "Max-Age=0")
	require.Contains(t, sc, "Secure")
	require.JSONEq(t, `{"message":"session expired"}`, rec.Body.String())
}

func TestRequireSession_InvalidTokenKeepsCookie(t *testing.T) {
	auth := stubAuth{err: errs.New(errs.KindInvalidToken, "invalid token")}
	h := RequireSession(auth, false, zaptest.NewLogger(t))(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/post", nil)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestRequireSession_PassesValidSession(t *testing.T) {
	auth := stubAuth{user: &model.User{ID: uuid.Must(uuid.NewV4()), Username: "admin"}}

	called := false
	h := RequireSession(auth, false, zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil)))
	require.True(t, called)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestRecover(t *testing.T) {
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), zaptest.NewLogger(t), context.DeadlineExceeded)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"message":"internal server error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), zaptest.NewLogger(t), errs.New(errs.KindRateLimited, "too many login attempts"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
