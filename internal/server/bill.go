package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billdomain "github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/pkg/db/pagination"
)

func (s *Server) CreateBill(c *gin.Context) {
	var req billdomain.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Bills are only accepted for patients the directory knows.
	if _, err := s.patients.FindByRef(c.Request.Context(), s.db, req.Charges.PatientRef); err != nil {
		AbortWithError(c, err)
		return
	}

	snapshot, err := s.billSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": snapshot})
}

func (s *Server) LoadBillForEdit(c *gin.Context) {
	session, err := s.billSvc.LoadForEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) UpdateBill(c *gin.Context) {
	var req billdomain.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snapshot, err := s.billSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) MarkBillCompleted(c *gin.Context) {
	if err := s.billSvc.MarkCompleted(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (s *Server) DeleteBill(c *gin.Context) {
	if err := s.billSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) ListPatientBills(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snapshots, pageInfo, err := s.billSvc.ListByPatient(c.Request.Context(), ref, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots, "page_info": pageInfo})
}

func (s *Server) GetRoomRates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.rates.Get()})
}
