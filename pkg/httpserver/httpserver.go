// Package httpserver is the web viewer for the chunk/diff engine: it
// ingests successive snapshots of a tracked (repo, path) pair, folds each
// one into the pair's reconstructed chunk chain (internal/reconcile), and
// renders the chain plus a unified diff against the previous snapshot.
package httpserver

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arlobridge/chunkdiff/internal/reconcile"
	"github.com/arlobridge/chunkdiff/pkg/db"
	"github.com/arlobridge/chunkdiff/pkg/storage"
	"github.com/arlobridge/chunkdiff/templates"
)

// Server holds the dependencies needed to serve the web viewer.
type Server struct {
	PublicURL string
	Storage   storage.Storage
	DB        *db.DB
	Output    io.Writer

	// MaxChunkChars bounds Collection.Split for every ingested snapshot
	// (spec.md §4.3). Defaults to 4096 if zero.
	MaxChunkChars int
}

func (s *Server) maxChunkChars() int {
	if s.MaxChunkChars <= 0 {
		return 4096
	}
	return s.MaxChunkChars
}

// Router builds the chi router serving the index, ingestion endpoint, and
// per-tracked-file views.
func (s *Server) Router() chi.Router {
	if s.Output == nil {
		s.Output = os.Stdout
	}
	rt := chi.NewRouter()
	rt.Use(
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger: log.New(s.Output, "", log.LstdFlags),
		}),
		middleware.Recoverer,
		middleware.Timeout(time.Second*60),
	)
	rt.Get("/", s.index)
	rt.Post("/", s.e(s.ingest))
	fs := http.FileServer(http.Dir("."))
	rt.Get("/static/*", fs.ServeHTTP)
	rt.Get("/{id}", s.e(s.view))
	rt.Get("/{id}.diff", s.e(s.view))
	return rt
}

const (
	ctHeader = "Content-Type"
	ctPlain  = "text/plain; charset=utf-8"
)

var (
	reBrowser = regexp.MustCompile("(?i)(?:chrome|firefox|safari|gecko)/")
	errUsage  = errors.New("")
)

func (s *Server) usageString() []byte {
	return []byte("usage: curl -F repo=myrepo -F path=main.go -F content=@main.go " + s.PublicURL + "\n")
}

func isBrowser(r *http.Request) bool {
	return reBrowser.MatchString(r.UserAgent())
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if !isBrowser(r) {
		w.Header().Set(ctHeader, ctPlain)
		w.Write(s.usageString())
		return
	}
	templates.Templates.ExecuteTemplate(
		w,
		"index.tmpl",
		struct{ PublicURL string }{s.PublicURL},
	)
}

// e wraps an error-returning handler, mapping known sentinel errors to the
// right status code and logging everything else as a 500, matching the
// teacher's upload-handler error convention (pkg/http/routes.go).
func (s *Server) e(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, errUsage):
			w.WriteHeader(http.StatusBadRequest)
			w.Write(s.usageString())
		case errors.Is(err, db.ErrLimitsExceeded):
			w.Header().Set(ctHeader, ctPlain)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(err.Error() + "\n"))
		case errors.Is(err, reconcile.ErrBrokenChain):
			w.Header().Set(ctHeader, ctPlain)
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte("broken chain: " + err.Error() + "\n"))
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("not found\n"))
		default:
			log.Printf("request error: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 internal server error\n"))
		}
	}
}
