package httpserver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/thehowl/cford32"
	"go.uber.org/multierr"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/lineset"
	"github.com/arlobridge/chunkdiff/internal/reconcile"
	"github.com/arlobridge/chunkdiff/pkg/db"
)

const (
	maxBodySize        = 1 << 20 // 1M
	maxMultipartMemory = maxBodySize

	maxBytesWeek = (1 << 20) * 8 // 8M of snapshot content per week.
	maxCallsWeek = 500           // max ingest calls per week.
)

// ingest folds one new snapshot of a tracked (repo, path) pair into its
// reconstructed history. The form must carry "repo" and "path" values and
// a "content" file or value holding the new snapshot; "timestamp" is an
// optional Unix-seconds override, defaulting to time.Now.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("error: " + err.Error() + "\n"))
		w.Write(s.usageString())
		return nil
	}
	defer r.MultipartForm.RemoveAll()

	repo := r.FormValue("repo")
	path := r.FormValue("path")
	content, err := formContent(r)
	if err != nil {
		return err
	}
	if repo == "" || path == "" || content == nil {
		return errUsage
	}

	ts := time.Now().Unix()
	if raw := r.FormValue("timestamp"); raw != "" {
		ts, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("bad timestamp: %w", err)
		}
	}

	now := time.Now().UTC()
	weekNum := (now.YearDay() - 1) / 7
	err = s.DB.AddAmountsAndCompare(
		r.RemoteAddr,
		db.UsageStat{
			Period:   fmt.Sprintf("%d/%d", now.Year(), weekNum),
			NumBytes: uint64(len(content)),
			NumCalls: 1,
		},
		db.UploadLimits{MaxBytes: maxBytesWeek, MaxCalls: maxCallsWeek},
	)
	if err != nil {
		if errors.Is(err, db.ErrLimitsExceeded) {
			resetTime := time.Date(now.Year(), time.January, ((weekNum+1)*7)+1, 0, 0, 0, 0, time.UTC)
			return fmt.Errorf("%w; will reset on %s (in %s)", db.ErrLimitsExceeded, resetTime.Format(time.RFC3339), resetTime.Sub(now))
		}
		return err
	}

	id := db.IDFor(repo, path)
	existing, err := s.DB.GetRevision(id)
	if err != nil {
		return err
	}

	chunks := chunk.Segment(lineset.New(string(content))).Split(s.maxChunkChars())
	newDiff := reconcile.Create(chunks, ts)

	merged := newDiff
	if !existing.IsZero() {
		existingRefs, err := parseLines(existing.Lines)
		if err != nil {
			return err
		}
		merged, err = reconcile.FromRefs(existingRefs).Merge(newDiff)
		if err != nil {
			return err
		}
	} else {
		merged, err = merged.Reconstruct()
		if err != nil {
			return err
		}
	}

	ctx := r.Context()
	if err := s.storeChunkContents(ctx, chunks); err != nil {
		return err
	}

	contentID := contentAddress(content)
	if err := s.Storage.Put(ctx, contentID, content); err != nil {
		return err
	}

	rev := db.Revision{
		Repo:          repo,
		Path:          path,
		UpdatedAt:     now,
		LastTimestamp: ts,
		LastContentID: contentID,
		PrevContentID: existing.LastContentID,
		Lines:         encodeLines(merged.EncodeLines(ts)),
	}
	if err := s.DB.PutRevision(id, rev); err != nil {
		return multierr.Combine(err, s.Storage.Del(context.Background(), contentID))
	}

	link := s.PublicURL + "/" + id
	w.Header().Set(ctHeader, ctPlain)
	w.Header().Set("Location", link)
	w.WriteHeader(http.StatusFound)
	w.Write([]byte(link + "\n"))
	return nil
}

// storeChunkContents persists each chunk's text under its content hash, so
// the view handler can recover chunk text later. Puts are idempotent:
// unchanged chunks across revisions collapse to the same key, which is the
// whole point of content-addressing them.
func (s *Server) storeChunkContents(ctx context.Context, chunks chunk.Collection) error {
	for _, c := range chunks {
		key := string(c.Hash())
		if _, err := s.Storage.Get(ctx, key); err == nil {
			continue
		}
		if err := s.Storage.Put(ctx, key, []byte(c.Lines.Concat())); err != nil {
			return fmt.Errorf("store chunk %s: %w", key, err)
		}
	}
	return nil
}

func contentAddress(content []byte) string {
	sum := sha256.Sum256(content)
	return "c" + cford32.EncodeToStringLower(sum[:5])
}

func formContent(r *http.Request) ([]byte, error) {
	if f, _, err := r.FormFile("content"); err == nil {
		defer f.Close()
		return io.ReadAll(f)
	}
	if v := r.FormValue("content"); v != "" {
		return []byte(v), nil
	}
	return nil, nil
}

func parseLines(raw []string) ([]chunkref.Ref, error) {
	refs := make([]chunkref.Ref, len(raw))
	for i, l := range raw {
		line, err := chunkref.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("stored diff-file line %d: %w", i, err)
		}
		refs[i] = line.Ref
	}
	return refs, nil
}

func encodeLines(lines []chunkref.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Encode()
	}
	return out
}
