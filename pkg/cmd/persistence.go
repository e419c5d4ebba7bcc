// Package cmd provides common initialization shared by the binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence/file"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the database URL scheme.
// postgres:// and postgresql:// go to the SQL implementation, anything else is
// treated as a file-persistence root directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	scheme, rest, found := strings.Cut(databaseURL, "://")

	switch {
	case found && (scheme == "postgres" || scheme == "postgresql"):
		persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres persistence: %w", err)
		}

		return persist, nil
	case found && scheme == "file":
		return file.NewPersistence(rest), nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
