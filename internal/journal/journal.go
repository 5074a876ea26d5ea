// Package journal keeps snapshots of spec files taken right before they are
// overwritten, so that any saved edit can be reviewed and undone.
//
// Snapshot metadata and content blobs live in one badger database. Blobs are
// keyed by content hash, zstd-compressed above a size threshold and cached
// decompressed in an LRU.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
	"github.com/jcapiitao/rdopkg/internal/storage"
	"github.com/jcapiitao/rdopkg/shared/utils"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	snapshotPrefix = "snapshot"
	blobPrefix     = "blob:"

	blobRaw  byte = 0
	blobZstd byte = 1
)

// Snapshot describes one recorded version of a spec file.
type Snapshot struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	Operation  string    `json:"operation"`
	Session    string    `json:"session,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Snapshot) GetID() string { return s.ID }

// Options configures a Journal
type Options struct {
	CacheSize   int
	Compression CompressionOptions
	Logger      *zap.Logger
}

type Journal struct {
	db        *badger.DB
	ownsDB    bool
	snapshots *storage.BadgerStore
	cache     *lru.Cache[string, []byte]
	comp      *compressor
	logger    *zap.Logger
	now       func() time.Time
}

// Open opens (or creates) the journal database under dir. An empty dir
// keeps the journal in memory.
func Open(dir string, opts Options) (*Journal, error) {
	db, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	j, err := New(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	j.ownsDB = true
	return j, nil
}

// New builds a journal on an already opened database.
func New(db *badger.DB, opts Options) (*Journal, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.Compression == (CompressionOptions{}) {
		opts.Compression = DefaultCompressionOptions()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	comp, err := newCompressor(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Journal{
		db:        db,
		snapshots: storage.NewBadgerStore(db, snapshotPrefix),
		cache:     cache,
		comp:      comp,
		logger:    opts.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database when the journal opened it.
func (j *Journal) Close() error {
	if !j.ownsDB {
		return nil
	}
	return j.db.Close()
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Record stores content as the state of path before operation op.
func (j *Journal) Record(path string, content []byte, op, session string) (*Snapshot, error) {
	hash := utils.HashContent(content)
	stored, compressed := j.comp.compress(content)

	flag := blobRaw
	if compressed {
		flag = blobZstd
	}
	err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobPrefix+hash), append([]byte{flag}, stored...))
	})
	if err != nil {
		return nil, fmt.Errorf("storing snapshot content: %w", err)
	}

	snap := &Snapshot{
		ID:         uuid.NewString(),
		Path:       normalize(path),
		Hash:       hash,
		Size:       int64(len(content)),
		Compressed: compressed,
		Operation:  op,
		Session:    session,
		CreatedAt:  j.now(),
	}
	if err := j.snapshots.Create(snap); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}
	j.cache.Add(hash, content)

	j.logger.Debug("recorded snapshot",
		zap.String("id", snap.ID),
		zap.String("path", snap.Path),
		zap.String("operation", op),
		zap.Int64("size", snap.Size),
		zap.Bool("compressed", compressed),
	)
	return snap, nil
}

// Get returns the snapshot with the given ID.
func (j *Journal) Get(id string) (*Snapshot, error) {
	var snap Snapshot
	if err := j.snapshots.Get(id, &snap); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, rerrors.SnapshotNotFound(id)
		}
		return nil, err
	}
	return &snap, nil
}

// List returns the snapshots of path, newest first. An empty path lists
// every file.
func (j *Journal) List(path string) ([]Snapshot, error) {
	if path != "" {
		path = normalize(path)
	}

	var snaps []Snapshot
	err := j.snapshots.Each(func(val []byte) error {
		var snap Snapshot
		if err := json.Unmarshal(val, &snap); err != nil {
			return err
		}
		if path == "" || snap.Path == path {
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(snaps, func(a, b int) bool {
		return snaps[a].CreatedAt.After(snaps[b].CreatedAt)
	})
	return snaps, nil
}

// Latest returns the newest snapshot of path.
func (j *Journal) Latest(path string) (*Snapshot, error) {
	snaps, err := j.List(path)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, rerrors.SnapshotNotFound("latest")
	}
	return &snaps[0], nil
}

// Content returns the recorded bytes of a snapshot.
func (j *Journal) Content(id string) ([]byte, error) {
	snap, err := j.Get(id)
	if err != nil {
		return nil, err
	}
	if content, ok := j.cache.Get(snap.Hash); ok {
		return content, nil
	}

	var stored []byte
	err = j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + snap.Hash))
		if err != nil {
			return err
		}
		stored, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && len(stored) == 0) {
		return nil, fmt.Errorf("snapshot %s: content %s missing", id, snap.Hash)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot content: %w", err)
	}

	content, err := j.comp.decompress(stored[1:], stored[0] == blobZstd)
	if err != nil {
		return nil, err
	}
	if utils.HashContent(content) != snap.Hash {
		return nil, fmt.Errorf("snapshot %s: content hash mismatch", id)
	}
	j.cache.Add(snap.Hash, content)
	return content, nil
}

// Prune keeps the newest keep snapshots of path and drops the rest along
// with content no remaining snapshot refers to.
func (j *Journal) Prune(path string, keep int) (int, error) {
	snaps, err := j.List(path)
	if err != nil {
		return 0, err
	}
	if len(snaps) <= keep {
		return 0, nil
	}

	dropped := snaps[max(keep, 0):]
	for _, snap := range dropped {
		if err := j.snapshots.Delete(snap.ID); err != nil {
			return 0, fmt.Errorf("deleting snapshot %s: %w", snap.ID, err)
		}
	}

	remaining, err := j.List("")
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(remaining))
	for _, snap := range remaining {
		referenced[snap.Hash] = true
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		for _, snap := range dropped {
			if referenced[snap.Hash] {
				continue
			}
			referenced[snap.Hash] = true
			j.cache.Remove(snap.Hash)
			if err := txn.Delete([]byte(blobPrefix + snap.Hash)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting snapshot content: %w", err)
	}

	j.logger.Debug("pruned snapshots", zap.String("path", path), zap.Int("dropped", len(dropped)))
	return len(dropped), nil
}
