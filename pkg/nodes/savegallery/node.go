// Package savegallery provides the gallery save node for workflow graph
// execution.
package savegallery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

const (
	defaultFolder   = "gallery"
	signedURLExpiry = time.Hour
	downloadTimeout = 30 * time.Second
)

// Config defines the configuration for gallery save nodes.
type Config struct {
	ImageURL  string   `json:"image_url,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Folder    string   `json:"folder"`
}

// Node saves generated images into the user's storage namespace and library.
// Each image is attempted independently; the node fails only when zero images
// could be saved.
type Node struct {
	logger  *slog.Logger
	config  Config
	storage protocol.GalleryStorage
	library protocol.ImageLibrary
	client  *http.Client
}

// NewNode parses the raw configuration and builds an executor instance.
func NewNode(logger *slog.Logger, deps *Deps, config map[string]any) (*Node, error) {
	parsed := Config{Folder: defaultFolder}

	if imageURL, ok := config["image_url"].(string); ok {
		parsed.ImageURL = imageURL
	}

	if raw, ok := config["image_urls"].([]any); ok {
		for _, item := range raw {
			if url, ok := item.(string); ok && url != "" {
				parsed.ImageURLs = append(parsed.ImageURLs, url)
			}
		}
	}

	if raw, ok := config["image_urls"].([]string); ok {
		parsed.ImageURLs = append(parsed.ImageURLs, raw...)
	}

	if folder, ok := config["folder"].(string); ok && folder != "" {
		parsed.Folder = folder
	}

	if parsed.ImageURL == "" && len(parsed.ImageURLs) == 0 {
		return nil, errors.New("missing required field 'image_url' or 'image_urls'")
	}

	return &Node{
		logger:  logger.With("module", "save_gallery"),
		config:  parsed,
		storage: deps.Storage,
		library: deps.Library,
		client:  &http.Client{Timeout: downloadTimeout},
	}, nil
}

// Execute saves every referenced image. Free of credit cost: this step has no
// compute behind it.
func (n *Node) Execute(ctx context.Context, userID string, _ models.ExecutionContext) (*protocol.NodeResult, error) {
	images := n.config.ImageURLs
	if len(images) == 0 {
		images = []string{n.config.ImageURL}
	}

	var (
		savedURLs []string
		savedKeys []string
	)

	for _, image := range images {
		url, key, err := n.saveOne(ctx, userID, image)
		if err != nil {
			n.logger.WarnContext(ctx, "Failed to save image, continuing with remaining",
				"error", err)

			continue
		}

		savedURLs = append(savedURLs, url)
		savedKeys = append(savedKeys, key)
	}

	if len(savedURLs) == 0 {
		return nil, fmt.Errorf("failed to save any of %d images", len(images))
	}

	return &protocol.NodeResult{
		Output: map[string]any{
			"gallery_url":  savedURLs[0],
			"gallery_urls": savedURLs,
			"storage_keys": savedKeys,
			"saved_count":  len(savedURLs),
		},
	}, nil
}

// saveOne downloads or decodes one image, uploads it and records it in the
// library, returning a signed URL and the storage key.
func (n *Node) saveOne(ctx context.Context, userID, image string) (string, string, error) {
	data, contentType, err := n.fetch(ctx, image)
	if err != nil {
		return "", "", err
	}

	key := fmt.Sprintf("%s/%s/%s.%s", userID, n.config.Folder, uuid.New().String(), extensionFor(contentType))

	if err := n.storage.Upload(ctx, key, data, contentType); err != nil {
		return "", "", fmt.Errorf("upload of %s failed: %w", key, err)
	}

	record := &protocol.GalleryRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		StorageKey:  key,
		Folder:      n.config.Folder,
		ContentType: contentType,
		Approved:    true,
	}

	if err := n.library.CreateRecord(ctx, record); err != nil {
		return "", "", fmt.Errorf("library record for %s failed: %w", key, err)
	}

	url, err := n.storage.SignedURL(ctx, key, signedURLExpiry)
	if err != nil {
		return "", "", fmt.Errorf("signing %s failed: %w", key, err)
	}

	return url, key, nil
}

// fetch resolves an image reference to raw bytes: data URIs are decoded
// inline, anything else is downloaded.
func (n *Node) fetch(ctx context.Context, image string) ([]byte, string, error) {
	if strings.HasPrefix(image, "data:") {
		return decodeDataURI(image)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, image, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build download request: %w", err)
	}

	response, err := n.client.Do(request)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, "", fmt.Errorf("HTTP %d downloading image", response.StatusCode)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	contentType := response.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}

func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")

	meta, encoded, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", errors.New("malformed data URI")
	}

	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if !strings.HasSuffix(meta, ";base64") {
		return []byte(encoded), contentType, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI: %w", err)
	}

	return data, contentType, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "png"
	}
}
