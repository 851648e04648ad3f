// Package storage holds blob storage backends for receipt images.
package storage

import (
	"context"
	"io"
	"time"
)

// ReceiptStore is the blob storage surface the receipt service needs.
type ReceiptStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
