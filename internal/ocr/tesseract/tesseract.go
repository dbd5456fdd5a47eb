// Package tesseract implements ocr.Recognizer on top of the Tesseract engine via gosseract (cgo).
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"impugnaya/internal/ocr"
)

// Engine runs Tesseract with a fresh client per call; gosseract clients are not
// safe for concurrent use.
type Engine struct {
	tessdataPrefix string
	clientFactory  func() *gosseract.Client
}

var _ ocr.Recognizer = (*Engine)(nil)

// New returns an Engine. tessdataPrefix may be empty to use Tesseract's default data path.
func New(tessdataPrefix string) *Engine {
	return &Engine{tessdataPrefix: tessdataPrefix, clientFactory: gosseract.NewClient}
}

// Recognize decodes image with Tesseract using the given language (e.g. "spa").
// The context is checked before the engine starts; Tesseract itself cannot be interrupted.
func (e *Engine) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if e.tessdataPrefix != "" {
		c.TessdataPrefix = e.tessdataPrefix
	}
	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language %s: %w", language, err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Languages lists the trained languages available to the engine.
func (e *Engine) Languages() ([]string, error) {
	return gosseract.GetAvailableLanguages()
}

// Version reports the linked Tesseract version.
func (e *Engine) Version() string {
	c := e.clientFactory()
	defer c.Close()
	return c.Version()
}
