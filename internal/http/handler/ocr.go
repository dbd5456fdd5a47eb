package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"impugnaya/internal/logging"
	"impugnaya/internal/service"
)

type uploadResponse struct {
	ExtractedText string `json:"extracted_text"`
	Filename      string `json:"filename"`
	Success       bool   `json:"success"`
}

// Upload handles POST /upload.
//
// @Summary     Extract text from a photographed ticket
// @Tags        ocr
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "PNG, JPG or JPEG image"
// @Success     200 {object} uploadResponse
// @Failure     400 {object} errorPayload
// @Failure     413 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Failure     504 {object} errorPayload
// @Router      /upload [post]
func Upload(svc service.OCRService, logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			// A file input submitted empty arrives as a plain value.
			if form, ferr := c.MultipartForm(); ferr == nil {
				if _, ok := form.Value["file"]; ok {
					return writeError(c, errFileNotSelected)
				}
			}
			return writeError(c, errFileRequired)
		}
		if fh.Filename == "" {
			return writeError(c, errFileNotSelected)
		}

		f, err := fh.Open()
		if err != nil {
			return writeFailure(c, logger, errFileOpen, err)
		}
		defer f.Close()

		res, err := svc.Extract(c.UserContext(), f, fh.Filename, fh.Size)
		switch {
		case err == nil:
			return c.JSON(uploadResponse{ExtractedText: res.Text, Filename: res.Filename, Success: true})
		case errors.Is(err, service.ErrFileRequired):
			return writeError(c, errFileRequired)
		case errors.Is(err, service.ErrUnsupportedFormat):
			return writeError(c, errUnsupportedFormat)
		case errors.Is(err, service.ErrInvalidFilename):
			return writeError(c, errInvalidFilename)
		case errors.Is(err, service.ErrEngineTimeout):
			return writeFailure(c, logger, errOCRTimeout, err)
		case errors.Is(err, service.ErrRecognition):
			return writeFailure(c, logger, errOCRFailed, err)
		default:
			return writeFailure(c, logger, errInternal, err)
		}
	}
}
