package tool

import (
	"maps"

	"github.com/gin-gonic/gin"
)

// Control API reply bodies: {"error": ...}, {"status": "ok"} or {"data": ...}.

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnTaskError names the task an error refers to.
func FastReturnTaskError(msg, taskID string) gin.H {
	return FastReturnErrorWithData(msg, map[string]any{"id": taskID})
}

func FastReturnErrorWithData(msg string, data map[string]any) gin.H {
	resp := gin.H{
		"error": msg,
	}
	maps.Copy(resp, data)
	return resp
}
