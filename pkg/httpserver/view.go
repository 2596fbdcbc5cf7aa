package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/arlobridge/chunkdiff/internal/reconcile"
	"github.com/arlobridge/chunkdiff/pkg/db"
	"github.com/arlobridge/chunkdiff/pkg/diff"
	"github.com/arlobridge/chunkdiff/templates"
)

// view renders the reconstructed chunk chain for a tracked (repo, path)
// pair, and — once at least two snapshots have been ingested — a unified
// diff between the two most recent ones.
func (s *Server) view(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	wantRaw := strings.HasSuffix(r.URL.Path, ".diff") || !isBrowser(r)

	rev, err := s.DB.GetRevision(id)
	if err != nil {
		return err
	}
	if rev.IsZero() {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
		return nil
	}

	refs, err := parseLines(rev.Lines)
	if err != nil {
		return err
	}
	chain, err := reconcile.FromRefs(refs).Reconstruct()
	if err != nil {
		return err
	}

	ctx := r.Context()
	entries, err := s.chainEntries(ctx, chain)
	if err != nil {
		return err
	}

	var unif diff.Unified
	opts := diff.Options{Context: 3}
	var space string
	if rev.PrevContentID != "" {
		prev, err := s.Storage.Get(ctx, rev.PrevContentID)
		if err != nil {
			return err
		}
		cur, err := s.Storage.Get(ctx, rev.LastContentID)
		if err != nil {
			return err
		}

		qry := r.URL.Query()
		space = qry.Get("w")
		switch space {
		case "w":
			opts.Normal = ignoreAllSpace
		case "b":
			opts.Normal = ignoreSpaceChange
		default:
			space = ""
		}
		if c, err := strconv.Atoi(qry.Get("c")); err == nil {
			opts.Context = max(0, min(1000, c))
		}
		unif = diff.DiffWithOptions(rev.Path+"@prev", prev, rev.Path+"@"+strconv.FormatInt(rev.LastTimestamp, 10), cur, opts)

		if wantRaw {
			w.Header().Set(ctHeader, ctPlain)
			w.Write([]byte(unif.String()))
			return nil
		}
	} else if wantRaw {
		w.Header().Set(ctHeader, ctPlain)
		w.Write([]byte("only one revision recorded; nothing to diff yet\n"))
		return nil
	}

	return templates.Templates.ExecuteTemplate(w, "file.tmpl", &templates.FileTemplateData{
		ID:      id,
		Repo:    rev.Repo,
		Path:    rev.Path,
		Diff:    unif,
		Chain:   entries,
		Space:   space,
		Context: opts.Context,
		Query:   r.URL.Query(),
	})
}

// chainEntries recovers the chunk text named by each ref in chain's
// boundary-ordered list, for display.
func (s *Server) chainEntries(ctx context.Context, chain reconcile.Diff) ([]templates.ChainEntry, error) {
	refs := chain.Refs()
	entries := make([]templates.ChainEntry, 0, len(refs))
	for _, ref := range refs {
		text, err := s.Storage.Get(ctx, string(ref.Hash))
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ref.Hash, err)
		}
		entries = append(entries, templates.ChainEntry{
			Start:     string(ref.Start),
			End:       string(ref.End),
			Timestamp: ref.Timestamp,
			Text:      text,
		})
	}
	return entries, nil
}

func ignoreAllSpace(s string) string {
	s = strings.TrimSpace(s)
	dst := make([]rune, 0, len(s))
	for _, rn := range s {
		if !isSpaceNotNewline(rn) {
			dst = append(dst, rn)
		}
	}
	return string(dst)
}

func ignoreSpaceChange(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	flds := strings.FieldsFunc("\n"+s, isSpaceNotNewline)
	joined := strings.Join(flds, " ")
	firstRune, _ := utf8.DecodeRuneInString(s)
	if unicode.IsSpace(firstRune) {
		joined = " " + joined
	}
	return joined
}

func isSpaceNotNewline(r rune) bool {
	return unicode.IsSpace(r) && r != '\n'
}
