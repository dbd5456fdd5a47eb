package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"impugnaya/internal/filename"
	"impugnaya/internal/imaging"
	"impugnaya/internal/logging"
	"impugnaya/internal/model"
	"impugnaya/internal/ocr"
	"impugnaya/internal/storage"
)

// AllowedImageExtensions lists the upload extensions accepted by Extract.
var AllowedImageExtensions = []string{"png", "jpg", "jpeg"}

// OCROptions configures OCRService.
type OCROptions struct {
	Language string
	// MinWidth is the width below which images are upscaled before recognition.
	MinWidth int
	// MaxPixels bounds decoded and prepared image sizes; 0 uses imaging.DefaultMaxPixels.
	MaxPixels int
}

// OCRService defines the upload-and-recognize use case.
type OCRService interface {
	// Extract validates originalName, stores the upload under its sanitized name and returns the
	// recognized text. Validation happens before anything is written. On decode or engine
	// failure the stored file is removed again.
	Extract(ctx context.Context, r io.Reader, originalName string, size int64) (*model.Extraction, error)
}

type ocrService struct {
	store      storage.Storage
	recognizer ocr.Recognizer
	logger     *logging.Logger
	opts       OCROptions
}

// NewOCRService constructs an OCRService writing uploads to store.
func NewOCRService(store storage.Storage, recognizer ocr.Recognizer, logger *logging.Logger, opts OCROptions) OCRService {
	if opts.Language == "" {
		opts.Language = "spa"
	}
	return &ocrService{store: store, recognizer: recognizer, logger: logger, opts: opts}
}

func (s *ocrService) Extract(ctx context.Context, r io.Reader, originalName string, size int64) (*model.Extraction, error) {
	if r == nil || originalName == "" {
		return nil, ErrFileRequired
	}
	if !filename.HasAllowedExtension(originalName, AllowedImageExtensions...) {
		return nil, ErrUnsupportedFormat
	}
	key := filename.Secure(originalName)
	if key == "" {
		return nil, ErrInvalidFilename
	}

	if _, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: mime.TypeByExtension("." + filename.Extension(key)),
	}); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	text, img, err := s.recognize(ctx, key)
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error("failed to remove rejected upload", delErr, map[string]any{"file": key})
		}
		return nil, err
	}
	img.OriginalName = originalName
	img.Size = size

	return &model.Extraction{Text: text, Filename: key, Image: img}, nil
}

func (s *ocrService) recognize(ctx context.Context, key string) (string, model.UploadedImage, error) {
	rc, info, err := s.store.Get(ctx, key)
	if err != nil {
		return "", model.UploadedImage{}, fmt.Errorf("%w: reopen upload: %w", ErrRecognition, err)
	}
	defer rc.Close()

	img, meta, err := imaging.Decode(rc, s.opts.MaxPixels)
	if err != nil {
		return "", model.UploadedImage{}, fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	s.logger.Info("image decoded", map[string]any{
		"file":   key,
		"format": meta.Format,
		"mode":   meta.Mode,
		"width":  meta.Width,
		"height": meta.Height,
		"bytes":  info.Size,
	})

	prepared, err := imaging.PrepareForOCR(img, s.opts.MinWidth, s.opts.MaxPixels)
	if err != nil {
		return "", model.UploadedImage{}, fmt.Errorf("%w: %w", ErrRecognition, err)
	}

	text, err := s.recognizer.Recognize(ctx, prepared, s.opts.Language)
	switch {
	case errors.Is(err, ocr.ErrTimeout):
		return "", model.UploadedImage{}, fmt.Errorf("%w: %w", ErrEngineTimeout, err)
	case err != nil:
		return "", model.UploadedImage{}, fmt.Errorf("%w: %w", ErrRecognition, err)
	}

	return strings.TrimSpace(text), model.UploadedImage{
		StoredName: key,
		Format:     meta.Format,
		Mode:       meta.Mode,
		Width:      meta.Width,
		Height:     meta.Height,
	}, nil
}
