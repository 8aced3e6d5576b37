package endpoints

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/http/api"
	"github.com/parleylabs/parley/internal/recording"
)

type WebhookController struct {
	recordings *recording.Service
}

// EgressModule mounts the media server's egress callback. The media server
// authenticates with the shared media API secret, not a participant JWT, so
// this module is mounted behind its own group.
func EgressModule(recordings *recording.Service) api.Module {
	ctl := &WebhookController{recordings: recordings}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/webhooks/egress", api.ResolveEndpoint(ctl.egressUpdated))
	})
}

type egressEvent struct {
	EgressID string `json:"egressId" binding:"required"`
	Status   string `json:"status" binding:"required"`
	FilePath string `json:"filePath"`
}

func (w *WebhookController) egressUpdated(c *gin.Context) (any, *api.Error) {
	var ev egressEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	log.Info().Str("egress_id", ev.EgressID).Str("status", ev.Status).Msg("egress webhook received")
	if err := w.recordings.Complete(ev.EgressID, ev.Status, ev.FilePath); err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"ok": true}, nil
}
