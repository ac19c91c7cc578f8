package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

func IDString(id int64) string {
	return snowflake.ID(id).String()
}

// ParseID parses a snowflake id as rendered in API responses.
func ParseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id.Int64(), nil
}
