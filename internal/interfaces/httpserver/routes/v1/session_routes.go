package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"avatar-bridge/internal/infrastructure/auth"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	sessionreq "avatar-bridge/internal/interfaces/httpserver/requests/session"
	"avatar-bridge/internal/interfaces/httpserver/responses"
	sessionres "avatar-bridge/internal/interfaces/httpserver/responses/session"
	"avatar-bridge/internal/utils/platformerrors"
)

// RegisterSessionRoutes registers the avatar session routes.
func RegisterSessionRoutes(router gin.IRoutes, handler *handlers.SessionHandler) {
	router.POST("/sessions", createSession(handler))
	router.GET("/sessions", listSessions(handler))
	router.GET("/sessions/:id", getSession(handler))
	router.DELETE("/sessions/:id", deleteSession(handler))
}

// createSession godoc
// @Summary      Create an avatar session
// @Description  Creates a LiveKit room for the caller and the avatar agent and returns a client token.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request body sessionreq.CreateSessionRequest false "Session options"
// @Success      201 {object} sessionres.SessionResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /sessions [post]
func createSession(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessionreq.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid session request")
			return
		}

		sess, err := handler.CreateSession(c.Request.Context(), req.ToDomain(), extractUserID(c))
		if err != nil {
			responses.HandleError(c, err, "failed to create session")
			return
		}

		c.JSON(http.StatusCreated, sessionres.NewSessionResponse(sess))
	}
}

// listSessions godoc
// @Summary      List avatar sessions
// @Description  Lists all active sessions for the current user
// @Tags         Sessions
// @Produce      json
// @Success      200 {object} sessionres.ListSessionsResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /sessions [get]
func listSessions(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := handler.ListUserSessions(c.Request.Context(), extractUserID(c))
		if err != nil {
			responses.HandleError(c, err, "failed to list sessions")
			return
		}

		c.JSON(http.StatusOK, sessionres.NewListSessionsResponse(sessions))
	}
}

// getSession godoc
// @Summary      Get an avatar session
// @Description  Retrieves a session by ID. Users can only access their own sessions.
// @Tags         Sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.SessionResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /sessions/{id} [get]
func getSession(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := handler.GetSession(c.Request.Context(), c.Param("id"), extractUserID(c))
		if err != nil {
			responses.HandleError(c, err, "session not found")
			return
		}

		c.JSON(http.StatusOK, sessionres.NewSessionResponseForGet(sess))
	}
}

// deleteSession godoc
// @Summary      Delete an avatar session
// @Description  Ends a session. Users can only delete their own sessions.
// @Tags         Sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.DeleteSessionResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /sessions/{id} [delete]
func deleteSession(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := handler.DeleteSession(c.Request.Context(), id, extractUserID(c)); err != nil {
			responses.HandleError(c, err, "session not found")
			return
		}

		c.JSON(http.StatusOK, sessionres.NewDeleteSessionResponse(id))
	}
}

func extractUserID(c *gin.Context) string {
	if id := auth.UserID(c); id != "" {
		return id
	}
	return "anonymous"
}
