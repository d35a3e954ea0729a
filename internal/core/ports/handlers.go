package ports

import (
	"github.com/gin-gonic/gin"
)

type StreamHandler interface {
	Playlist(c *gin.Context)
	Segment(c *gin.Context)
	Heartbeat(c *gin.Context)
}

type AdminHandler interface {
	CreateGrant(c *gin.Context)
	ListSessions(c *gin.Context)
	GetSession(c *gin.Context)
	StopSession(c *gin.Context)
}
