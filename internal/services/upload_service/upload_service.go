package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/compressor"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/metrics"
	filestorage "github.com/mikutaniguchi/ticket-collection/internal/storage/filestorage"
)

var (
	ErrEmptyFile   = errors.New("empty file")
	ErrNotAnImage  = errors.New("file is not an image")
	ErrInvalidRole = errors.New("invalid image role")
)

const (
	suffixLen      = 9
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	// savings above this ratio are worth a log line
	reportRatio = 0.1
)

type Compressor interface {
	ShouldCompress(mimeType string, size int64) bool
	Compress(ctx context.Context, data []byte, mimeType string) (compressor.Result, error)
}

type UploadService struct {
	log        *slog.Logger
	storage    filestorage.FileStorage
	compressor Compressor
	now        func() time.Time
}

func NewUploadService(log *slog.Logger, storage filestorage.FileStorage, compressor Compressor) *UploadService {
	return &UploadService{
		log:        log,
		storage:    storage,
		compressor: compressor,
		now:        time.Now,
	}
}

// ObjectPath is the storage location of one ticket asset.
func ObjectPath(userID, ticketID uuid.UUID, fileID string) string {
	return "tickets/" + userID.String() + "/" + ticketID.String() + "/" + fileID
}

// TicketPrefix is the namespace holding every asset of one ticket.
func TicketPrefix(userID, ticketID uuid.UUID) string {
	return "tickets/" + userID.String() + "/" + ticketID.String() + "/"
}

// UserPrefix is the namespace holding every asset of one user.
func UserPrefix(userID uuid.UUID) string {
	return "tickets/" + userID.String() + "/"
}

// ProcessAndUpload compresses the file when eligible and stores it under the
// ticket's namespace. A compression failure falls back to the original
// bytes, a storage failure is returned to the caller.
func (s *UploadService) ProcessAndUpload(ctx context.Context, file models.PendingImage, userID, ticketID uuid.UUID, role models.ImageRole) (*models.UploadedAsset, error) {
	const op = "services.UploadService.ProcessAndUpload"

	log := s.log.With(
		slog.String("op", op),
		slog.String("ticket_id", ticketID.String()),
		slog.String("role", string(role)),
	)

	if role != models.RoleTicket && role != models.RoleGallery {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyFile)
	}

	mimeType := file.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(file.Data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAnImage)
	}

	fileID, err := s.newFileID(role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data := file.Data
	originalSize := file.Size()

	if s.compressor != nil && s.compressor.ShouldCompress(mimeType, originalSize) {
		res, err := s.compressor.Compress(ctx, data, mimeType)
		if err != nil {
			log.Warn("compression failed, uploading original", sl.Err(err))
		} else {
			data = res.Data
			mimeType = res.MimeType

			if res.Ratio() > reportRatio {
				log.Debug("image compressed",
					slog.Int64("original_size", res.OriginalSize),
					slog.Int64("compressed_size", res.CompressedSize),
					slog.Int("quality", res.Quality),
				)
			}
		}
	}

	objectPath := ObjectPath(userID, ticketID, fileID)

	url, size, err := s.storage.Put(ctx, objectPath, bytes.NewReader(data))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(role), "error").Inc()
		log.Error("upload failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.UploadsTotal.WithLabelValues(string(role), "ok").Inc()
	metrics.UploadBytes.WithLabelValues("original").Observe(float64(originalSize))
	metrics.UploadBytes.WithLabelValues("stored").Observe(float64(size))

	return &models.UploadedAsset{
		ID:             fileID,
		TicketID:       ticketID,
		Role:           role,
		Name:           file.Filename,
		MimeType:       mimeType,
		URL:            url,
		Path:           objectPath,
		OriginalSize:   originalSize,
		CompressedSize: size,
	}, nil
}

func (s *UploadService) Delete(ctx context.Context, objectPath string) error {
	const op = "services.UploadService.Delete"

	if err := s.storage.Delete(ctx, objectPath); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// newFileID returns "{role}_{unix millis}_{9 base36 chars}".
func (s *UploadService) newFileID(role models.ImageRole) (string, error) {
	suffix, err := randomBase36(suffixLen)
	if err != nil {
		return "", err
	}

	return string(role) + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + suffix, nil
}

func randomBase36(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256
			if b >= 252 {
				continue
			}
			out = append(out, base36Alphabet[b%36])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}
