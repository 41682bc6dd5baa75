package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/jobs"
	"github.com/noah-isme/visit-intake-api/pkg/storage"
)

const (
	mimePDF  = "application/pdf"
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// JobTypeRemoveDocument retries a document removal that failed inline.
	JobTypeRemoveDocument = "document.remove"
)

var documentAllowList = map[models.DocumentCategory][]string{
	models.DocumentIntroductionLetter: {mimePDF, mimeJPEG, mimePNG, mimeDOC, mimeDOCX},
	models.DocumentResponseLetter:     {mimePDF, mimeDOC, mimeDOCX},
	models.DocumentCoverLetter:        {mimePDF},
	models.DocumentCV:                 {mimePDF},
	models.DocumentTranscript:         {mimePDF, mimeJPEG, mimePNG},
	models.DocumentStudentCard:        {mimePDF, mimeJPEG, mimePNG},
	models.DocumentIDPhoto:            {mimeJPEG, mimePNG},
}

var extensionByMime = map[string]string{
	mimePDF:  ".pdf",
	mimeJPEG: ".jpg",
	mimePNG:  ".png",
	mimeDOC:  ".doc",
	mimeDOCX: ".docx",
}

var mimeByExtension = map[string]string{
	".pdf":  mimePDF,
	".jpg":  mimeJPEG,
	".jpeg": mimeJPEG,
	".png":  mimePNG,
	".doc":  mimeDOC,
	".docx": mimeDOCX,
}

// DocumentUpload is a file received from a client.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// Download is an opened stored document. Callers must close Content.
type Download struct {
	Ref         string
	Filename    string
	ContentType string
	Size        int64
	Content     io.ReadCloser
}

type documentStorage interface {
	SaveStream(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, fs.FileInfo, error)
	Delete(name string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DocumentService validates, names and persists uploaded documents.
type DocumentService struct {
	storage  documentStorage
	maxBytes int64
	metrics  *MetricsService
	logger   *zap.Logger
	retries  jobEnqueuer
	now      func() time.Time
}

// NewDocumentService constructs a document service. maxBytes <= 0 means 5 MiB.
func NewDocumentService(store documentStorage, maxBytes int64, metrics *MetricsService, logger *zap.Logger) *DocumentService {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{storage: store, maxBytes: maxBytes, metrics: metrics, logger: logger, now: time.Now}
}

// UseRemovalQueue routes failed removals through q for retry.
func (s *DocumentService) UseRemovalQueue(q jobEnqueuer) {
	s.retries = q
}

// MaxBytes reports the per-file size limit.
func (s *DocumentService) MaxBytes() int64 {
	return s.maxBytes
}

// Validate checks presence, size and type of an upload without writing anything.
// It returns the effective content type.
func (s *DocumentService) Validate(category models.DocumentCategory, upload *DocumentUpload) (string, error) {
	allowed, ok := documentAllowList[category]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document category %q", category))
	}
	if upload == nil || upload.Content == nil {
		return "", appErrors.WithDetails(appErrors.ErrMissingArtifact, map[string]interface{}{"field": string(category)})
	}
	if upload.Size == 0 {
		return "", appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "uploaded file is empty"), map[string]interface{}{"field": string(category)})
	}
	if upload.Size > s.maxBytes {
		return "", appErrors.WithDetails(appErrors.ErrFileTooLarge, map[string]interface{}{
			"field":    string(category),
			"maxBytes": s.maxBytes,
		})
	}

	contentType, err := effectiveMimeType(upload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to inspect upload")
	}
	for _, candidate := range allowed {
		if candidate == contentType {
			return contentType, nil
		}
	}
	return "", appErrors.WithDetails(appErrors.ErrInvalidFileType, map[string]interface{}{
		"field":    string(category),
		"received": contentType,
		"allowed":  allowed,
	})
}

// Store validates upload and persists it under a generated name, returning the reference.
// The caller-supplied filename is never used for storage.
func (s *DocumentService) Store(ctx context.Context, category models.DocumentCategory, upload *DocumentUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	contentType, err := s.Validate(category, upload)
	if err != nil {
		s.metrics.RecordDocument(string(category), "store", "rejected")
		return "", err
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	ref := s.generateName(category, contentType)
	if _, err := s.storage.SaveStream(ref, upload.Content, s.maxBytes); err != nil {
		s.metrics.RecordDocument(string(category), "store", "failed")
		if errors.Is(err, storage.ErrTooLarge) {
			return "", appErrors.WithDetails(appErrors.ErrFileTooLarge, map[string]interface{}{
				"field":    string(category),
				"maxBytes": s.maxBytes,
			})
		}
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	s.metrics.RecordDocument(string(category), "store", "ok")
	s.logger.Debug("document stored", zap.String("category", string(category)), zap.String("ref", ref))
	return ref, nil
}

// Open resolves ref to its bytes. Unknown or missing references yield NOT_FOUND.
func (s *DocumentService) Open(ctx context.Context, ref string) (*Download, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	file, info, err := s.storage.Open(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, storage.ErrInvalidPath) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open document")
	}
	return &Download{
		Ref:         ref,
		Filename:    path.Base(ref),
		ContentType: contentTypeForName(ref),
		Size:        info.Size(),
		Content:     file,
	}, nil
}

// Remove deletes ref. Failures are logged and, when a retry queue is attached,
// handed to it. The caller's row state is authoritative either way.
func (s *DocumentService) Remove(ctx context.Context, ref string) {
	if strings.TrimSpace(ref) == "" {
		return
	}
	category := path.Dir(ref)
	if err := s.storage.Delete(ref); err != nil {
		s.metrics.RecordDocument(category, "remove", "failed")
		s.logger.Warn("document removal failed", zap.String("ref", ref), zap.Error(err))
		if s.retries != nil {
			if qerr := s.retries.Enqueue(jobs.Job{Type: JobTypeRemoveDocument, Payload: ref}); qerr != nil {
				s.logger.Warn("document removal retry not queued", zap.String("ref", ref), zap.Error(qerr))
			}
		}
		return
	}
	s.metrics.RecordDocument(category, "remove", "ok")
}

// RemoveAll removes every non-empty reference.
func (s *DocumentService) RemoveAll(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		s.Remove(ctx, ref)
	}
}

// HandleRemovalJob is the queue handler retrying removals.
func (s *DocumentService) HandleRemovalJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeRemoveDocument {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	ref, ok := job.Payload.(string)
	if !ok || ref == "" {
		return fmt.Errorf("invalid removal payload")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.storage.Delete(ref)
}

func (s *DocumentService) generateName(category models.DocumentCategory, contentType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%s_%d_%s%s", category, category, s.now().Unix(), suffix, extensionByMime[contentType])
}

func effectiveMimeType(upload *DocumentUpload) (string, error) {
	declared := normalizeMime(upload.MimeType)
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	detected, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return "", err
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return normalizeMime(detected.String()), nil
}

func normalizeMime(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "image/jpg" || value == "image/pjpeg" {
		return mimeJPEG
	}
	return value
}

func contentTypeForName(name string) string {
	if ct, ok := mimeByExtension[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
