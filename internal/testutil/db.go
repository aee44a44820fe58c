package testutil

import (
	"testing"

	"Uni_Connect/internal/repository/mysql"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 每个测试一份独立的内存 SQLite，已建表
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := mysql.InitDB(mysql.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
