package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
)

type unitsResponse struct {
	Units      []costing.Unit     `json:"units"`
	Thresholds costing.Thresholds `json:"thresholds"`
	TargetCMV  decimal.Decimal    `json:"target_cmv"`
}

// ListUnits exposes the unit table and CMV bands currently in effect.
func (s *Server) ListUnits(c *gin.Context) {
	settings := s.costing.Get()
	c.JSON(http.StatusOK, gin.H{"data": unitsResponse{
		Units:      settings.Units.Units(),
		Thresholds: settings.Thresholds,
		TargetCMV:  settings.TargetCMV,
	}})
}
