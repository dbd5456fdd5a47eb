package handler

import (
	"errors"
	"mime"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"impugnaya/internal/logging"
	"impugnaya/internal/model"
	"impugnaya/internal/service"
)

const msgGenerated = "PDF generado exitosamente"

type generateResponse struct {
	PDFGenerado string `json:"pdf_generado"`
	Success     bool   `json:"success"`
	Mensaje     string `json:"mensaje"`
}

// GenerateDescargo handles POST /generar-descargo.
//
// @Summary     Generate a descargo PDF
// @Tags        descargos
// @Accept      json
// @Produce     json
// @Param       request body model.DescargoRequest true "Body text and optional file name"
// @Success     200 {object} generateResponse
// @Failure     400 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Router      /generar-descargo [post]
func GenerateDescargo(svc service.DescargoService, logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isJSON(c.Get(fiber.HeaderContentType)) {
			return writeError(c, errInvalidContentType)
		}

		var req model.DescargoRequest
		if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
			return writeError(c, errInvalidJSON)
		}

		doc, err := svc.Generate(c.UserContext(), req.Texto, req.Nombre)
		switch {
		case err == nil:
			return c.JSON(generateResponse{PDFGenerado: doc.Name, Success: true, Mensaje: msgGenerated})
		case errors.Is(err, service.ErrEmptyText):
			return writeError(c, errEmptyText)
		case errors.Is(err, service.ErrRender):
			return writeFailure(c, logger, errPDFFailed, err)
		default:
			return writeFailure(c, logger, errInternal, err)
		}
	}
}

// Download handles GET /download/:nombre.
//
// @Summary     Download a generated document
// @Tags        descargos
// @Produce     application/pdf
// @Param       nombre path string true "Document name as returned by /generar-descargo"
// @Success     200 {file} file
// @Failure     400 {object} errorPayload
// @Failure     403 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Router      /download/{nombre} [get]
func Download(svc service.DescargoService, logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("nombre"))
		if err != nil {
			return writeError(c, errInvalidFilename)
		}

		rc, info, err := svc.Open(c.UserContext(), name)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrForbidden):
			return writeError(c, errForbidden)
		case errors.Is(err, service.ErrInvalidFilename):
			return writeError(c, errInvalidFilename)
		case errors.Is(err, service.ErrNotFound):
			return writeError(c, errFileNotFound)
		default:
			return writeFailure(c, logger, errInternal, err)
		}

		c.Attachment(info.Key)
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		size := -1
		if info.Size >= 0 {
			size = int(info.Size)
		}
		// The response closes rc once the body has been written.
		return c.SendStream(rc, size)
	}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == fiber.MIMEApplicationJSON || strings.HasSuffix(mt, "+json")
}
