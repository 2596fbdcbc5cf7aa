package db

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thehowl/cford32"
	"go.etcd.io/bbolt"
)

// DB is a thin wrapper around a Bolt database. It centralizes functions
// which interact with the database.
type DB struct {
	DB *bbolt.DB

	err  error
	once sync.Once
}

func (d *DB) init() error {
	d.once.Do(d._init)
	return d.err
}

var (
	bFiles = []byte("files")
	bStats = []byte("stats")

	buckets = [...][]byte{
		bFiles,
		bStats,
	}
)

func (d *DB) _init() {
	err := d.DB.Update(func(tx *bbolt.Tx) error {
		for _, buck := range buckets {
			_, err := tx.CreateBucketIfNotExists(buck)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.err = fmt.Errorf("initialization error: %w", err)
	}
}

// Revision
// -----------------------------------------------------------------------------

// Revision is the stored state of one tracked (repo, path) pair: its
// reconstructed diff-file, serialized line-by-line in spec.md §6's wire
// format, plus enough bookkeeping to render the last ingested change as a
// human-readable diff (pkg/diff, display only — never the chunk boundary
// algorithm).
type Revision struct {
	Repo          string    `json:"repo"`
	Path          string    `json:"path"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastTimestamp int64     `json:"last_timestamp"`
	// LastContentID/PrevContentID locate the two most recent full
	// snapshots in object storage (pkg/storage), empty if not yet known.
	LastContentID string   `json:"last_content_id"`
	PrevContentID string   `json:"prev_content_id"`
	Lines         []string `json:"lines"`
}

// IsZero reports whether r is the zero value returned for an unknown key.
func (r Revision) IsZero() bool {
	return len(r.Lines) == 0
}

// IDFor derives the short, human-readable, content-addressed key used both
// as the Bolt key and as the web viewer's URL path for the (repo, path)
// pair — the same cford32-over-sha256 scheme the teacher uses for upload
// archive IDs (pkg/httpserver), applied here to a tracked-file identity
// instead of an upload's byte content.
func IDFor(repo, path string) string {
	sum := sha256.Sum256([]byte(repo + "\x00" + path))
	return cford32.EncodeToStringLower(sum[:5])
}

func (d *DB) HasRevision(id string) (bool, error) {
	if err := d.init(); err != nil {
		return false, err
	}

	var has bool
	err := d.DB.View(func(tx *bbolt.Tx) error {
		has = tx.Bucket(bFiles).Get([]byte(id)) != nil
		return nil
	})
	return has, err
}

func (d *DB) PutRevision(id string, r Revision) error {
	if err := d.init(); err != nil {
		return err
	}

	encoded, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return d.DB.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(bFiles).Put([]byte(id), encoded)
	})
}

func (d *DB) GetRevision(id string) (Revision, error) {
	if err := d.init(); err != nil {
		return Revision{}, err
	}

	var buf []byte
	err := d.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bFiles).Get([]byte(id))
		buf = append(buf, data...)
		return nil
	})
	if err != nil || len(buf) == 0 {
		return Revision{}, err
	}

	var r Revision
	err = json.Unmarshal(buf, &r)
	return r, err
}

// UsageStat
// -----------------------------------------------------------------------------

type UsageStat struct {
	Period   string `json:"p"`
	NumBytes uint64 `json:"nb"`
	NumCalls uint64 `json:"nc"`
}

type UploadLimits struct {
	MaxBytes uint64
	MaxCalls uint64
}

var ErrLimitsExceeded = errors.New("limits exceeded")

// AddAmountsAndCompare increases the stats for name, and ensures that the
// updated stats are within the given limits. If the limits are exceeded,
// [ErrLimitsExceeded] is returned.
func (d *DB) AddAmountsAndCompare(name string, deltaStat UsageStat, limits UploadLimits) error {
	if err := d.init(); err != nil {
		return err
	}
	err := d.DB.Batch(func(tx *bbolt.Tx) error {
		// get the current value of stat, if any.
		bk := tx.Bucket(bStats)
		val := bk.Get([]byte(name))
		var stat UsageStat
		if len(val) != 0 {
			if err := json.Unmarshal(val, &stat); err != nil {
				return err
			}
		}

		// increase the values in stat.
		if stat.Period == deltaStat.Period {
			stat.NumCalls += deltaStat.NumCalls
			stat.NumBytes += deltaStat.NumBytes
		} else {
			// if the period switched, use the new deltaStat directly.
			stat = deltaStat
		}

		// if the values exceed the limits, retujrn an error.
		if stat.NumBytes > limits.MaxBytes ||
			stat.NumCalls > limits.MaxCalls {
			return ErrLimitsExceeded
		}

		// set the new stats.
		res, err := json.Marshal(stat)
		if err != nil {
			return err
		}
		return bk.Put([]byte(name), res)
	})
	return err
}
