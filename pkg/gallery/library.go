package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

const (
	// maxFaceLockImages caps how many reference images a generation request
	// carries. More references add latency without improving face consistency.
	maxFaceLockImages = 4

	signedURLExpiry = time.Hour
)

// FaceLockRef is one stored face-lock reference image for a character.
type FaceLockRef struct {
	StorageKey string
	Mode       string
	Position   int
}

// RefSource lists a character's face-lock references.
type RefSource interface {
	FaceLockRefs(ctx context.Context, userID, characterID string) ([]FaceLockRef, error)
}

// RecordStore persists saved library records.
type RecordStore interface {
	SaveRecord(ctx context.Context, record *protocol.GalleryRecord) error
}

// Library implements the image-library collaborator: ordered face-lock
// references resolved to signed URLs, and record creation for saved images.
type Library struct {
	logger  *slog.Logger
	storage protocol.GalleryStorage
	refs    RefSource
	records RecordStore
}

func NewLibrary(logger *slog.Logger, storage protocol.GalleryStorage, refs RefSource, records RecordStore) *Library {
	return &Library{
		logger:  logger.With("module", "gallery"),
		storage: storage,
		refs:    refs,
		records: records,
	}
}

// FaceLockImages returns up to maxFaceLockImages signed URLs for a character's
// references in stored position order. Keys that are already absolute URLs
// pass through untouched; storage-relative keys get a time-bounded signed URL.
func (l *Library) FaceLockImages(ctx context.Context, userID, characterID, mode string) ([]string, error) {
	refs, err := l.refs.FaceLockRefs(ctx, userID, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list face-lock references: %w", err)
	}

	filtered := make([]FaceLockRef, 0, len(refs))

	for _, ref := range refs {
		if ref.Mode == "" || ref.Mode == mode {
			filtered = append(filtered, ref)
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Position < filtered[j].Position })

	if len(filtered) > maxFaceLockImages {
		filtered = filtered[:maxFaceLockImages]
	}

	urls := make([]string, 0, len(filtered))

	for _, ref := range filtered {
		if strings.HasPrefix(ref.StorageKey, "http://") || strings.HasPrefix(ref.StorageKey, "https://") {
			urls = append(urls, ref.StorageKey)

			continue
		}

		url, err := l.storage.SignedURL(ctx, ref.StorageKey, signedURLExpiry)
		if err != nil {
			l.logger.WarnContext(ctx, "Failed to sign face-lock image, skipping",
				"key", ref.StorageKey, "error", err)

			continue
		}

		urls = append(urls, url)
	}

	return urls, nil
}

// CreateRecord persists one saved library entry.
func (l *Library) CreateRecord(ctx context.Context, record *protocol.GalleryRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := l.records.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save gallery record: %w", err)
	}

	return nil
}

// MemoryStore is an in-memory RefSource and RecordStore for tests and
// single-process deployments without a library database.
type MemoryStore struct {
	mu      sync.RWMutex
	refs    map[string][]FaceLockRef
	records []*protocol.GalleryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[string][]FaceLockRef)}
}

func (m *MemoryStore) AddRef(userID, characterID string, ref FaceLockRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID + "/" + characterID
	m.refs[key] = append(m.refs[key], ref)
}

func (m *MemoryStore) FaceLockRefs(_ context.Context, userID, characterID string) ([]FaceLockRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := m.refs[userID+"/"+characterID]
	out := make([]FaceLockRef, len(refs))
	copy(out, refs)

	return out, nil
}

func (m *MemoryStore) SaveRecord(_ context.Context, record *protocol.GalleryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, record)

	return nil
}

// Records returns a snapshot of saved records.
func (m *MemoryStore) Records() []*protocol.GalleryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*protocol.GalleryRecord, len(m.records))
	copy(out, m.records)

	return out
}
