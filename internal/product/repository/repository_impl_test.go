package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestShareLockSuffix(t *testing.T) {
	tests := []struct {
		name      string
		dialector gorm.Dialector
		want      string
	}{
		{"postgres", postgres.New(postgres.Config{DSN: "host=localhost"}), " FOR SHARE"},
		{"mysql", mysql.New(mysql.Config{DSN: "user@tcp(localhost:3306)/db"}), " FOR SHARE"},
		{"sqlite", sqlite.Open("file::memory:"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &gorm.DB{Config: &gorm.Config{Dialector: tt.dialector}}
			assert.Equal(t, tt.want, shareLockSuffix(db))
		})
	}
}
