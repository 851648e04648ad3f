package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/repository/storage"
)

const (
	MaxReceiptSize     = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth    = 50
	MinReceiptHeight   = 50
	ReceiptThumbWidth  = 200
	ReceiptJPEGQuality = 85

	// ReceiptURLExpiry bounds how long a presigned receipt link stays valid.
	ReceiptURLExpiry = 15 * time.Minute
)

var (
	ErrReceiptTooLarge         = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat    = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall         = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidData      = errors.New("invalid image data")
	ErrReceiptsNotConfigured   = errors.New("receipt storage not configured")
	ErrTransactionHasNoReceipt = errors.New("transaction has no receipt")
)

// allowedReceiptExtensions maps extensions to content types.
var allowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptURLs carries presigned links for the stored receipt variants.
type ReceiptURLs struct {
	ThumbnailURL string `json:"thumbnailUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// ReceiptService attaches receipt images to transactions. Uploads are
// re-encoded to JPEG, a thumbnail variant is generated, and both objects
// land in blob storage under a key recorded on the transaction.
type ReceiptService struct {
	store           storage.ReceiptStore
	transactionRepo domain.TransactionRepository
}

// NewReceiptService creates a new ReceiptService. A nil store disables
// uploads but keeps the service safe to wire.
func NewReceiptService(store storage.ReceiptStore, transactionRepo domain.TransactionRepository) *ReceiptService {
	return &ReceiptService{store: store, transactionRepo: transactionRepo}
}

// IsEnabled indicates whether receipt storage is configured.
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.store != nil
}

// Attach validates and stores a receipt image for a transaction, replacing
// any previous receipt, and records the new object key on the transaction.
func (s *ReceiptService) Attach(ctx context.Context, workspaceID, transactionID int32, data []byte, filename string) error {
	if !s.IsEnabled() {
		return ErrReceiptsNotConfigured
	}

	tx, err := s.transactionRepo.GetByID(workspaceID, transactionID)
	if err != nil {
		return err
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return err
	}

	baseKey := fmt.Sprintf("%d/receipts/%d/%s", workspaceID, transactionID, uuid.New().String())

	variants := []struct {
		suffix   string
		maxWidth int
	}{
		{"thumb", ReceiptThumbWidth},
		{"original", 0}, // 0 means keep original size
	}

	var uploaded []string
	for _, variant := range variants {
		processed := img
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: ReceiptJPEGQuality}); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}

		key := variantKey(baseKey, variant.suffix)
		if err := s.store.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
			s.cleanup(ctx, uploaded)
			return fmt.Errorf("failed to upload %s variant: %w", variant.suffix, err)
		}
		uploaded = append(uploaded, key)
	}

	if _, err := s.transactionRepo.SetReceiptKey(workspaceID, transactionID, &baseKey); err != nil {
		s.cleanup(ctx, uploaded)
		return err
	}

	// Best-effort removal of the replaced receipt's objects.
	if tx.ReceiptKey != nil && *tx.ReceiptKey != baseKey {
		s.cleanup(ctx, []string{
			variantKey(*tx.ReceiptKey, "thumb"),
			variantKey(*tx.ReceiptKey, "original"),
		})
	}

	return nil
}

// URLs returns presigned links for a transaction's receipt variants.
func (s *ReceiptService) URLs(ctx context.Context, workspaceID, transactionID int32) (*ReceiptURLs, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptsNotConfigured
	}

	tx, err := s.transactionRepo.GetByID(workspaceID, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.ReceiptKey == nil {
		return nil, ErrTransactionHasNoReceipt
	}

	thumbURL, err := s.store.PresignGet(ctx, variantKey(*tx.ReceiptKey, "thumb"), ReceiptURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign thumbnail: %w", err)
	}
	originalURL, err := s.store.PresignGet(ctx, variantKey(*tx.ReceiptKey, "original"), ReceiptURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign original: %w", err)
	}

	return &ReceiptURLs{ThumbnailURL: thumbURL, OriginalURL: originalURL}, nil
}

// Remove deletes a transaction's receipt objects and clears the key.
func (s *ReceiptService) Remove(ctx context.Context, workspaceID, transactionID int32) error {
	if !s.IsEnabled() {
		return ErrReceiptsNotConfigured
	}

	tx, err := s.transactionRepo.GetByID(workspaceID, transactionID)
	if err != nil {
		return err
	}
	if tx.ReceiptKey == nil {
		return nil
	}

	if _, err := s.transactionRepo.SetReceiptKey(workspaceID, transactionID, nil); err != nil {
		return err
	}

	s.cleanup(ctx, []string{
		variantKey(*tx.ReceiptKey, "thumb"),
		variantKey(*tx.ReceiptKey, "original"),
	})
	return nil
}

func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedReceiptExtensions[ext]; !ok {
		return nil, ErrReceiptInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrReceiptInvalidData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}

	return img, nil
}

// cleanup removes uploaded objects, ignoring errors.
func (s *ReceiptService) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = s.store.Delete(ctx, key)
	}
}

func variantKey(baseKey, suffix string) string {
	return baseKey + "_" + suffix + ".jpg"
}
