package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/domain/webhook"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/utils/platformerrors"
)

// HandleError maps domain sentinels to typed responses and hands
// everything else to platformerrors.WriteError, logging through the
// request-scoped logger that RequestLoggerWithLogger attaches.
func HandleError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, webhook.ErrDeadLetterNotFound):
		platformerrors.WriteNotFound(c, message)
		return
	case errors.Is(err, session.ErrAlreadyExists), errors.Is(err, session.ErrRoomAlreadyExists):
		platformerrors.WriteConflict(c, message)
		return
	case errors.Is(err, handlers.ErrForbidden):
		platformerrors.WriteTyped(c, platformerrors.ErrorTypeForbidden, err.Error())
		return
	case errors.Is(err, webhook.ErrQueueFull), errors.Is(err, webhook.ErrDispatcherStopped):
		platformerrors.WriteTyped(c, platformerrors.ErrorTypeUnavailable, message)
		return
	}

	logger := zerolog.Ctx(c.Request.Context()).With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteError(c, err, logger)
}

// HandleNewError writes a new typed error response. Use this for
// route-level errors like validation failures.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	platformerrors.WriteTyped(c, errorType, message)
}
