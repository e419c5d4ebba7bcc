package gallery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

type fakeStorage struct {
	signErr  error
	uploaded map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}

	f.uploaded[key] = data

	return nil
}

func (f *fakeStorage) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}

	return "https://signed.example/" + key, nil
}

func TestFaceLockImagesOrderedAndSigned(t *testing.T) {
	store := NewMemoryStore()
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/b.png", Position: 2})
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/a.png", Position: 1})
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "https://cdn.example/direct.png", Position: 3})

	library := NewLibrary(slog.Default(), &fakeStorage{}, store, store)

	urls, err := library.FaceLockImages(context.Background(), "u1", "c1", "safe")

	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, "https://signed.example/u1/faces/a.png", urls[0])
	assert.Equal(t, "https://signed.example/u1/faces/b.png", urls[1])
	assert.Equal(t, "https://cdn.example/direct.png", urls[2])
}

func TestFaceLockImagesCapped(t *testing.T) {
	store := NewMemoryStore()

	for i := 0; i < 6; i++ {
		store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/x.png", Position: i})
	}

	library := NewLibrary(slog.Default(), &fakeStorage{}, store, store)

	urls, err := library.FaceLockImages(context.Background(), "u1", "c1", "safe")

	require.NoError(t, err)
	assert.Len(t, urls, maxFaceLockImages)
}

func TestFaceLockImagesModeFilter(t *testing.T) {
	store := NewMemoryStore()
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/safe.png", Mode: "safe", Position: 1})
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/explicit.png", Mode: "explicit", Position: 2})
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/any.png", Position: 3})

	library := NewLibrary(slog.Default(), &fakeStorage{}, store, store)

	urls, err := library.FaceLockImages(context.Background(), "u1", "c1", "explicit")

	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "explicit.png")
	assert.Contains(t, urls[1], "any.png")
}

func TestFaceLockImagesSignFailureSkipsImage(t *testing.T) {
	store := NewMemoryStore()
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "u1/faces/a.png", Position: 1})
	store.AddRef("u1", "c1", FaceLockRef{StorageKey: "https://cdn.example/b.png", Position: 2})

	library := NewLibrary(slog.Default(), &fakeStorage{signErr: errors.New("denied")}, store, store)

	urls, err := library.FaceLockImages(context.Background(), "u1", "c1", "safe")

	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://cdn.example/b.png", urls[0])
}

func TestCreateRecordStampsCreatedAt(t *testing.T) {
	store := NewMemoryStore()
	library := NewLibrary(slog.Default(), &fakeStorage{}, store, store)

	record := &protocol.GalleryRecord{
		ID:          "r1",
		UserID:      "u1",
		StorageKey:  "u1/gallery/r1.png",
		ContentType: "image/png",
		Approved:    true,
	}

	require.NoError(t, library.CreateRecord(context.Background(), record))

	records := store.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].CreatedAt.IsZero())
}
