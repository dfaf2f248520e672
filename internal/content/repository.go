// Package content stores serialized note documents as immutable blobs addressed
// by opaque keys. Updates always write a new key; a blob is never overwritten.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned by Get when no blob exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

// Repository is the blob storage collaborator used by the save and load paths.
type Repository interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh content key scoped to the user.
func NewKey(userID string) string {
	return fmt.Sprintf("%s/%d-%s.json", userID, time.Now().UnixMilli(), uuid.NewString())
}
