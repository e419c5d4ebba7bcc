package protocol

import (
	"context"
	"time"
)

// CreditLedger is the billing collaborator. Deduct is fire-and-forget from a
// node executor's perspective: a failed deduction is logged, never propagated,
// so a user is not penalized twice for a ledger hiccup.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Deduct(ctx context.Context, userID string, amount int, description string) error
}

// Character carries the prompt-engineering profile of a user's character.
// Appearance is verbatim and unmodifiable: prompt generation must reproduce it
// exactly, varying only pose, setting, lighting and expression.
type Character struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PromptPrefix string `json:"prompt_prefix"`
	PromptSuffix string `json:"prompt_suffix"`
	Appearance   string `json:"appearance"`
	LoRAName     string `json:"lora_name"`
}

// CharacterStore resolves character profiles for prompt enrichment.
type CharacterStore interface {
	CharacterByID(ctx context.Context, userID, characterID string) (*Character, error)
}

// ImageLibrary resolves ordered face-lock reference images as time-bounded
// signed URLs and records saved gallery entries.
type ImageLibrary interface {
	FaceLockImages(ctx context.Context, userID, characterID, mode string) ([]string, error)
	CreateRecord(ctx context.Context, record *GalleryRecord) error
}

// GalleryRecord is a saved library entry. Auto-approved entries already passed
// generation-time constraints.
type GalleryRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	StorageKey  string    `json:"storage_key"`
	Folder      string    `json:"folder,omitempty"`
	ContentType string    `json:"content_type"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}

// GalleryStorage is the object-storage collaborator for saved images.
type GalleryStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
