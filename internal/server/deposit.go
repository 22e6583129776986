package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	depositdomain "github.com/sevacare/ipdbilling/internal/deposit/domain"
)

func (s *Server) AddDeposit(c *gin.Context) {
	var req depositdomain.AddDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.depositSvc.Add(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) EditDeposit(c *gin.Context) {
	var req depositdomain.EditDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.depositSvc.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) DeleteDeposit(c *gin.Context) {
	if err := s.depositSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListPatientDeposits lists deposits with resolved dates. Session date
// overrides arrive as `override[<id>]=YYYY-MM-DD` query parameters.
func (s *Server) ListPatientDeposits(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))

	overrides := depositdomain.DateOverrides{}
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, "override[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		rawID := key[len("override[") : len(key)-1]
		id, err := snowflake.ParseString(rawID)
		if err != nil {
			continue
		}
		t, err := time.Parse("2006-01-02", values[0])
		if err != nil {
			continue
		}
		overrides[id] = t
	}

	entries, err := s.depositSvc.List(c.Request.Context(), ref, overrides)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sum, err := s.depositSvc.Sum(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "sum": sum})
}
