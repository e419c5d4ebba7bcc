package savegallery

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

type fakeStorage struct {
	uploadErr error
	signErr   error
	uploaded  map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}

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

type fakeLibrary struct {
	createErr error
	records   []*protocol.GalleryRecord
}

func (f *fakeLibrary) FaceLockImages(_ context.Context, _, _, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeLibrary) CreateRecord(_ context.Context, record *protocol.GalleryRecord) error {
	if f.createErr != nil {
		return f.createErr
	}

	f.records = append(f.records, record)

	return nil
}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not-really-a-png"))
}

func TestNodeRequiresImages(t *testing.T) {
	_, err := NewNode(slog.Default(), &Deps{}, map[string]any{"folder": "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "image_url")
}

func TestNodeSavesDataURI(t *testing.T) {
	storage := &fakeStorage{}
	library := &fakeLibrary{}

	node, err := NewNode(slog.Default(), &Deps{Storage: storage, Library: library}, map[string]any{
		"image_url": pngDataURI(),
		"folder":    "shoots",
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.CreditsUsed)
	assert.Equal(t, 1, result.Output["saved_count"])

	require.Len(t, library.records, 1)
	record := library.records[0]
	assert.True(t, record.Approved)
	assert.Equal(t, "image/png", record.ContentType)
	assert.Contains(t, record.StorageKey, "u1/shoots/")
	assert.Contains(t, record.StorageKey, ".png")
}

func TestNodeDownloadsRemoteImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	storage := &fakeStorage{}
	library := &fakeLibrary{}

	node, err := NewNode(slog.Default(), &Deps{Storage: storage, Library: library}, map[string]any{
		"image_url": server.URL + "/image.jpg",
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Output["saved_count"])
	assert.Contains(t, library.records[0].StorageKey, ".jpg")
	assert.Contains(t, library.records[0].StorageKey, "u1/gallery/")
}

func TestNodePartialFailureContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	storage := &fakeStorage{}
	library := &fakeLibrary{}

	node, err := NewNode(slog.Default(), &Deps{Storage: storage, Library: library}, map[string]any{
		"image_urls": []any{server.URL + "/missing.png", pngDataURI()},
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Output["saved_count"])

	urls, ok := result.Output["gallery_urls"].([]string)
	require.True(t, ok)
	assert.Len(t, urls, 1)
	assert.Equal(t, urls[0], result.Output["gallery_url"])
}

func TestNodeAllFailuresIsError(t *testing.T) {
	storage := &fakeStorage{uploadErr: errors.New("bucket gone")}
	library := &fakeLibrary{}

	node, err := NewNode(slog.Default(), &Deps{Storage: storage, Library: library}, map[string]any{
		"image_urls": []any{pngDataURI(), pngDataURI()},
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save any of 2 images")
}

func TestNodeRecordFailureCountsAsImageFailure(t *testing.T) {
	storage := &fakeStorage{}
	library := &fakeLibrary{createErr: errors.New("db down")}

	node, err := NewNode(slog.Default(), &Deps{Storage: storage, Library: library}, map[string]any{
		"image_url": pngDataURI(),
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
}

func TestDecodeDataURI(t *testing.T) {
	data, contentType, err := decodeDataURI(pngDataURI())

	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte("not-really-a-png"), data)

	_, _, err = decodeDataURI("data:image/png;base64")
	require.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "jpg", extensionFor("image/jpeg"))
	assert.Equal(t, "webp", extensionFor("image/webp"))
	assert.Equal(t, "gif", extensionFor("image/gif"))
	assert.Equal(t, "png", extensionFor("image/png"))
	assert.Equal(t, "png", extensionFor(""))
}
