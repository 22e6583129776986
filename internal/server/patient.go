package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetPatient(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))

	patient, err := s.patients.FindByRef(c.Request.Context(), s.db, ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": patient})
}
