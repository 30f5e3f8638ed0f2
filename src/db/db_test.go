package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestNewDBReplacesSingleton(t *testing.T) {
	gormDB, _ := newMockDB(t)
	NewDB(gormDB)
	t.Cleanup(func() { NewDB(nil) })

	assert.Same(t, gormDB, GetDb())
}

func TestNewSqliteDBIsolated(t *testing.T) {
	type probe struct {
		ID   uint
		Name string
	}
	first, err := NewSqliteDB()
	require.NoError(t, err)
	second, err := NewSqliteDB()
	require.NoError(t, err)

	require.NoError(t, first.AutoMigrate(&probe{}))
	require.NoError(t, first.Create(&probe{Name: "a"}).Error)

	assert.False(t, second.Migrator().HasTable(&probe{}))
	var count int64
	require.NoError(t, first.Model(&probe{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
