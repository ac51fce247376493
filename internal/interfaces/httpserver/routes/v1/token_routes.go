package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/interfaces/httpserver/responses"
	"avatar-bridge/internal/utils/platformerrors"
)

// RegisterTokenRoutes registers token issuing and client config routes.
func RegisterTokenRoutes(router gin.IRoutes, handler *handlers.TokenHandler) {
	router.GET("/token", getToken(handler))
	router.POST("/token", postToken(handler))
	router.GET("/config", getConfig(handler))
}

// getToken godoc
// @Summary      Issue a LiveKit token
// @Description  Issues a room admission token. Omitted parameters take the configured defaults.
// @Tags         Tokens
// @Produce      json
// @Param        room        query string false "Room name"
// @Param        participant query string false "Participant display name"
// @Param        identity    query string false "Participant identity (defaults to participant)"
// @Success      200 {object} token.Token
// @Failure      400 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /token [get]
func getToken(handler *handlers.TokenHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := token.Request{
			Room:        optionalQuery(c, "room"),
			Participant: optionalQuery(c, "participant"),
			Identity:    optionalQuery(c, "identity"),
		}
		issue(c, handler, req, handlers.SourceQuery)
	}
}

// postToken godoc
// @Summary      Issue a LiveKit token
// @Description  Issues a room admission token from a JSON body. An empty body uses all defaults.
// @Tags         Tokens
// @Accept       json
// @Produce      json
// @Param        request body token.Request false "Token request"
// @Success      200 {object} token.Token
// @Failure      400 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /token [post]
func postToken(handler *handlers.TokenHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req token.Request
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid JSON body")
			return
		}
		issue(c, handler, req, handlers.SourceBody)
	}
}

func issue(c *gin.Context, handler *handlers.TokenHandler, req token.Request, source string) {
	tok, err := handler.Issue(c.Request.Context(), req, source)
	if err != nil {
		responses.HandleError(c, err, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, tok)
}

// getConfig godoc
// @Summary      Client configuration
// @Description  Returns the LiveKit URL and token defaults clients need.
// @Tags         Tokens
// @Produce      json
// @Success      200 {object} token.ClientConfig
// @Security     BearerAuth
// @Router       /config [get]
func getConfig(handler *handlers.TokenHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.ClientConfig())
	}
}

func optionalQuery(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok {
		return &v
	}
	return nil
}
