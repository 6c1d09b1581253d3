package httpserver

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/and161185/maru-site/internal/service"
	"github.com/and161185/maru-site/internal/token"
)

const (
	adminPrefix = "/admin"
	adminLogin  = "/admin/login"
	adminHome   = "/admin/posts"
)

// htmlDir serves "name.html" for extensionless paths, so /admin/posts
// resolves to posts.html.
type htmlDir struct{ http.Dir }

func (d htmlDir) Open(name string) (http.File, error) {
	f, err := d.Dir.Open(name)
	if errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "" {
		return d.Dir.Open(name + ".html")
	}
	return f, err
}

// AdminGuard redirects anonymous visitors to the login page and signed-in
// ones away from it.
func AdminGuard(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := strings.TrimSuffix(r.URL.Path, "/")
			isLogin := p == adminLogin || p == adminLogin+".html"

			signedIn := false
			if raw := token.FromRequest(r); raw != "" {
				_, err := auth.Authenticate(r.Context(), raw)
				signedIn = err == nil
			}

			switch {
			case isLogin && signedIn:
				http.Redirect(w, r, adminHome, http.StatusFound)
			case !isLogin && !signedIn:
				http.Redirect(w, r, adminLogin, http.StatusFound)
			case p == adminPrefix:
				http.Redirect(w, r, adminHome, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// AdminFiles serves the admin pages from dir.
func AdminFiles(dir string) http.Handler {
	return http.StripPrefix(adminPrefix, http.FileServer(htmlDir{http.Dir(dir)}))
}
