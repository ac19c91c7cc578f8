package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// dateRangeQuery is the inclusive ?from=&to= window accepted by purchase listings
// and reports. Parsing is left to the domain.
type dateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

func bindDateRange(c *gin.Context) (dateRangeQuery, error) {
	var q dateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, invalidRequestError()
	}
	q.From = strings.TrimSpace(q.From)
	q.To = strings.TrimSpace(q.To)
	return q, nil
}

// parseOptionalBool distinguishes an absent flag from an explicit false.
func parseOptionalBool(field, value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return &parsed, nil
}
