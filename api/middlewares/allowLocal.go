package middlewares

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/scandrop/tool"
)

// OnlyAllowLocal rejects any client that is not on a loopback address.
func OnlyAllowLocal(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && ip.IsLoopback() {
		c.Next()
		return
	}
	tool.DefaultLogger.Warnf("[API] rejected non-local client %s %s %s", c.ClientIP(), c.Request.Method, c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
