package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports process and database liveness.
func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.ServiceName,
		"version": s.cfg.Version,
	})
}
