package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"impugnaya/internal/logging"
)

// Recover turns a panic in any later handler into an error for the app's ErrorHandler,
// logging the panic value and stack through l.
func Recover(l *logging.Logger) fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: PanicLogger(l),
	})
}

// PanicLogger is a recover StackTraceHandler writing one error line per panic.
func PanicLogger(l *logging.Logger) func(c *fiber.Ctx, e any) {
	return func(c *fiber.Ctx, e any) {
		l.Error("panic recovered", fmt.Errorf("%v", e), map[string]any{
			"request_id": RequestIDFromCtx(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"stack":      string(debug.Stack()),
		})
	}
}
