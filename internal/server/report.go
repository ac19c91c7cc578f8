package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/recipecost/internal/report/domain"
)

func (s *Server) CMVReport(c *gin.Context) {
	resp, err := s.reportSvc.CMVReport(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PurchaseSummary(c *gin.Context) {
	query, err := bindDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.PurchaseSummary(c.Request.Context(), reportdomain.PurchaseSummaryRequest{
		From: query.From,
		To:   query.To,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
