package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/scandrop/notify"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/validate"
)

// UserStatus returns server status for the web UI.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	cfg := tool.GetCurrentConfig()
	c.JSON(http.StatusOK, gin.H{
		"running":                true,
		"workspace_id":           cfg.WorkspaceID,
		"max_concurrent_uploads": cfg.MaxConcurrentUploads,
		"notify_enabled":         notify.UseNotify,
	})
}

// AcceptHandler returns the upload whitelist and picker extension hints.
// GET /api/self/v1/accept
func AcceptHandler(v *validate.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
			"rules":      v.Rules(),
			"extensions": v.AcceptHints(),
		}))
	}
}
