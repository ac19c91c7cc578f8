package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/smallbiznis/recipecost/internal/purchase/domain"
)

func (s *Server) CreatePurchase(c *gin.Context) {
	var req purchasedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.purchaseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPurchases(c *gin.Context) {
	query, err := bindDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.purchaseSvc.List(c.Request.Context(), purchasedomain.ListRequest{
		From: query.From,
		To:   query.To,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPurchaseByID(c *gin.Context) {
	resp, err := s.purchaseSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
