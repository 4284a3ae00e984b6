package database

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"pollblog-backend/config"
	"pollblog-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "postgres"}, false)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMigrateCreatesTables(t *testing.T) {
	db := NewTestDB(t)
	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestSeedOnlyFillsEmptyTables(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	now := time.Now()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Seed(ctx, db, now, log))
	require.NoError(t, Seed(ctx, db, now, log))

	var questions, choices, posts, comments int64
	db.Model(&models.Question{}).Count(&questions)
	db.Model(&models.Choice{}).Count(&choices)
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Comment{}).Count(&comments)

	assert.Equal(t, int64(2), questions)
	assert.Equal(t, int64(6), choices)
	assert.Equal(t, int64(2), posts)
	assert.Equal(t, int64(2), comments)

	var drafts int64
	db.Model(&models.Post{}).Where("published_date IS NULL").Count(&drafts)
	assert.Equal(t, int64(1), drafts)
}
