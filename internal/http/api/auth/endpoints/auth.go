package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/http/api"
	"github.com/parleylabs/parley/internal/http/api/auth/packets"
	"github.com/parleylabs/parley/internal/http/middleware"
)

type AuthController struct {
	store     db.Store
	jwtSecret string
}

func newAuthController(store db.Store, jwtSecret string) *AuthController {
	return &AuthController{store: store, jwtSecret: jwtSecret}
}

// TokenModule mounts the unauthenticated token exchange: a platform trades
// its shared secret for a participant-scoped JWT.
func TokenModule(store db.Store, jwtSecret string) api.Module {
	ctl := newAuthController(store, jwtSecret)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/auth/token", api.ResolveEndpoint(ctl.issueToken))
	})
}

func (a *AuthController) issueToken(c *gin.Context) (any, *api.Error) {
	var req packets.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	platform, err := a.store.GetPlatform(req.PlatformID)
	if err != nil {
		return nil, api.FromError(err)
	}
	if platform == nil || !middleware.CheckSecret(platform.SecretHash, req.Secret) {
		log.Warn().Str("platform_id", req.PlatformID).Msg("rejected token request")
		return nil, &api.Error{Status: http.StatusUnauthorized, Code: "NOT_ALLOWED", Message: "invalid platform credentials"}
	}

	token, err := middleware.GenerateJWT(middleware.Identity{
		PlatformID:    req.PlatformID,
		ParticipantID: req.ParticipantID,
		Username:      req.Username,
	}, a.jwtSecret)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.TokenResponse{Token: token}, nil
}
