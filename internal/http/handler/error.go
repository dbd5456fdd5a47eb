package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"impugnaya/internal/http/middleware"
	"impugnaya/internal/logging"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// apiError is a client-facing error: status, code and a safe Spanish message.
type apiError struct {
	status  int
	code    string
	message string
	hint    string
}

var (
	errFileRequired       = apiError{fiber.StatusBadRequest, "FILE_REQUIRED", "No se envió ningún archivo", ""}
	errFileNotSelected    = apiError{fiber.StatusBadRequest, "FILE_NOT_SELECTED", "No se seleccionó ningún archivo", ""}
	errFileOpen           = apiError{fiber.StatusBadRequest, "FILE_OPEN_ERROR", "No se pudo leer el archivo enviado", ""}
	errUnsupportedFormat  = apiError{fiber.StatusBadRequest, "UNSUPPORTED_FORMAT", "Formato no soportado. Usa PNG, JPG o JPEG", ""}
	errInvalidFilename    = apiError{fiber.StatusBadRequest, "INVALID_FILENAME", "Nombre de archivo inválido", ""}
	errInvalidContentType = apiError{fiber.StatusBadRequest, "INVALID_CONTENT_TYPE", "El contenido debe ser JSON", ""}
	errInvalidJSON        = apiError{fiber.StatusBadRequest, "INVALID_JSON", "El cuerpo de la solicitud no es un JSON válido", ""}
	errEmptyText          = apiError{fiber.StatusBadRequest, "EMPTY_TEXT", "El texto es requerido", ""}
	errForbidden          = apiError{fiber.StatusForbidden, "FORBIDDEN", "Acceso denegado", ""}
	errFileNotFound       = apiError{fiber.StatusNotFound, "NOT_FOUND", "Archivo no encontrado", ""}
	errOCRFailed          = apiError{fiber.StatusInternalServerError, "OCR_FAILED", "No se pudo extraer el texto de la imagen",
		"Verifica que la imagen sea legible y que Tesseract tenga el idioma 'spa' instalado."}
	errOCRTimeout = apiError{fiber.StatusGatewayTimeout, "OCR_TIMEOUT", "El reconocimiento de texto tardó demasiado",
		"Intenta con una imagen más pequeña o más nítida."}
	errPDFFailed          = apiError{fiber.StatusInternalServerError, "PDF_GENERATION_FAILED", "No se pudo generar el PDF", ""}
	errServiceUnavailable = apiError{fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Servicio no disponible", ""}
	errInternal           = apiError{fiber.StatusInternalServerError, "INTERNAL_ERROR", "Error interno del servidor", ""}

	errBadRequest       = apiError{fiber.StatusBadRequest, "BAD_REQUEST", "Solicitud inválida", ""}
	errRouteNotFound    = apiError{fiber.StatusNotFound, "NOT_FOUND", "Endpoint no encontrado", ""}
	errMethodNotAllowed = apiError{fiber.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Método no permitido", ""}
	errPayloadTooLarge  = apiError{fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "El archivo excede el tamaño máximo permitido", ""}
)

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, e apiError) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    e.code,
			Message: e.message,
			Hint:    e.hint,
		},
	}
	return c.Status(e.status).JSON(res)
}

// writeFailure logs cause with the request context and answers with e.
func writeFailure(c *fiber.Ctx, logger *logging.Logger, e apiError, cause error) error {
	logger.Error("request failed", cause, map[string]any{
		"request_id": middleware.RequestIDFromCtx(c),
		"method":     c.Method(),
		"path":       c.Path(),
		"code":       e.code,
	})
	return writeError(c, e)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// It also receives errors raised before routing, such as an oversized body.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, errBadRequest)
		case fiber.StatusNotFound:
			return writeError(c, errRouteNotFound)
		case fiber.StatusMethodNotAllowed:
			return writeError(c, errMethodNotAllowed)
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, errPayloadTooLarge)
		default:
			return writeFailure(c, logger, errInternal, err)
		}
	}
}
