package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
)

// @Summary      Create or append a project version
// @Description  Creates a project for an unseen token_old or appends a version to the project owning it
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body projectdomain.UpsertRequest true "Upsert Request"
// @Success      200  {object}  projectdomain.Response
// @Router       /projects [post]
func (s *Server) UpsertProject(c *gin.Context) {
	var req projectdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Upsert(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id           path   string  true  "Project ID"
// @Param        customer_id  query  string  true  "Customer ID"
// @Success      200  {object}  projectdomain.Response
// @Router       /projects/{id} [get]
func (s *Server) GetProject(c *gin.Context) {
	resp, err := s.projectSvc.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"), c.Query("customer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List projects for a customer
// @Tags         projects
// @Produce      json
// @Security     ApiKeyAuth
// @Param        customer_id  query  string  true  "Customer ID"
// @Success      200  {object}  []projectdomain.Response
// @Router       /projects [get]
func (s *Server) ListProjects(c *gin.Context) {
	resp, err := s.projectSvc.List(c.Request.Context(), tenantFromContext(c), c.Query("customer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update project fields
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id           path   string  true  "Project ID"
// @Param        customer_id  query  string  true  "Customer ID"
// @Param        request body projectdomain.UpdateRequest true "Update Request"
// @Success      200  {object}  projectdomain.Response
// @Router       /projects/{id} [put]
func (s *Server) UpdateProject(c *gin.Context) {
	var req projectdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), tenantFromContext(c), c.Param("id"), c.Query("customer_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Soft-delete a project
// @Tags         projects
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id           path   string  true  "Project ID"
// @Param        customer_id  query  string  true  "Customer ID"
// @Success      200  {object}  map[string]string
// @Router       /projects/{id} [delete]
func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.projectSvc.Delete(c.Request.Context(), tenantFromContext(c), c.Param("id"), c.Query("customer_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
