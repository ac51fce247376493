package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/interfaces/httpserver/responses"
	webhookres "avatar-bridge/internal/interfaces/httpserver/responses/webhook"
	"avatar-bridge/internal/utils/platformerrors"
)

// maxWebhookBody caps inbound webhook bodies.
const maxWebhookBody = 1 << 20

// RegisterWebhookIngressRoutes registers the signed inbound webhook routes.
func RegisterWebhookIngressRoutes(router gin.IRoutes, handler *handlers.WebhookHandler, livekit *handlers.LiveKitHandler) {
	router.POST("/webhooks", receiveWebhook(handler))
	router.POST("/webhooks/livekit", receiveLiveKitWebhook(livekit))
}

// RegisterWebhookAdminRoutes registers dead-letter inspection and replay.
func RegisterWebhookAdminRoutes(router gin.IRoutes, handler *handlers.WebhookHandler) {
	router.GET("/webhooks/stats", webhookStats(handler))
	router.GET("/webhooks/dead-letters", listDeadLetters(handler))
	router.POST("/webhooks/dead-letters/:id/replay", replayDeadLetter(handler))
}

// receiveWebhook godoc
// @Summary      Receive an avatar platform webhook
// @Description  Verifies the HMAC signature, deduplicates by event id and queues the event. Duplicates are acknowledged with 200.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        X-Signature header string false "sha256=<hex HMAC-SHA256 of body>"
// @Success      202 {object} webhookres.ReceiveResponse
// @Success      200 {object} webhookres.ReceiveResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      413 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Failure      503 {object} responses.ErrorResponse
// @Router       /webhooks [post]
func receiveWebhook(handler *handlers.WebhookHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.HandleNewError(c, platformerrors.ErrorTypeTooLarge, "webhook body exceeds 1 MiB")
				return
			}
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "could not read request body")
			return
		}

		result, err := handler.Receive(c.Request.Context(), body, c.Request.Header)
		if err != nil {
			responses.HandleError(c, err, "webhook rejected")
			return
		}

		status := http.StatusAccepted
		if result.Duplicate {
			status = http.StatusOK
		}
		c.JSON(status, webhookres.NewReceiveResponse(result))
	}
}

// receiveLiveKitWebhook godoc
// @Summary      Receive a LiveKit server webhook
// @Description  participant_joined marks the room's session connected; room_finished ends it.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} webhookres.LiveKitResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Router       /webhooks/livekit [post]
func receiveLiveKitWebhook(handler *handlers.LiveKitHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := handler.Receive(c.Request)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid livekit webhook")
			return
		}

		action, err := handler.Handle(c.Request.Context(), event)
		if err != nil {
			responses.HandleError(c, err, "failed to apply livekit webhook")
			return
		}

		c.JSON(http.StatusOK, webhookres.LiveKitResponse{
			Event:  event.GetEvent(),
			Room:   event.GetRoom().GetName(),
			Action: action,
		})
	}
}

// webhookStats godoc
// @Summary      Webhook processing stats
// @Tags         Webhooks
// @Produce      json
// @Success      200 {object} handlers.WebhookStats
// @Security     BearerAuth
// @Router       /webhooks/stats [get]
func webhookStats(handler *handlers.WebhookHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.Stats())
	}
}

// listDeadLetters godoc
// @Summary      List dead-lettered webhooks
// @Description  Events whose handler kept failing after all retries, newest first.
// @Tags         Webhooks
// @Produce      json
// @Param        limit query int false "Maximum entries (default 50)"
// @Success      200 {object} webhookres.DeadLetterListResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /webhooks/dead-letters [get]
func listDeadLetters(handler *handlers.WebhookHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "limit must be a positive integer")
				return
			}
			limit = n
		}

		items, err := handler.DeadLetters(c.Request.Context(), limit)
		if err != nil {
			responses.HandleError(c, err, "failed to list dead letters")
			return
		}
		c.JSON(http.StatusOK, webhookres.NewDeadLetterListResponse(items))
	}
}

// replayDeadLetter godoc
// @Summary      Replay a dead-lettered webhook
// @Tags         Webhooks
// @Produce      json
// @Param        id path string true "Dead letter ID"
// @Success      202 {object} webhookres.ReplayResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      503 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /webhooks/dead-letters/{id}/replay [post]
func replayDeadLetter(handler *handlers.WebhookHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		event, err := handler.Replay(c.Request.Context(), id)
		if err != nil {
			responses.HandleError(c, err, "dead letter not found")
			return
		}
		c.JSON(http.StatusAccepted, webhookres.ReplayResponse{
			ID:        id,
			EventID:   event.ID,
			EventType: event.Type,
			Replayed:  true,
		})
	}
}
