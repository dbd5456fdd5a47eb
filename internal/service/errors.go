package service

import "errors"

// Validation errors are safe to report to clients; the others are mapped to generic
// messages by the HTTP layer and only logged in full.
var (
	ErrFileRequired      = errors.New("file is required")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyText         = errors.New("text is required")
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("access denied")

	ErrRecognition   = errors.New("text recognition failed")
	ErrEngineTimeout = errors.New("text recognition timed out")
	ErrRender        = errors.New("document generation failed")
)
