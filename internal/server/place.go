package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Get place details
// @Description  Serves cached Google place details, refreshing stale entries on read
// @Tags         places
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Place ID"
// @Success      200  {object}  placedomain.Place
// @Router       /places/{id} [get]
func (s *Server) GetPlace(c *gin.Context) {
	place, err := s.placeSvc.GetPlace(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"place": place}})
}
