package migrations

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openLegacyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Exec("CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER, author TEXT, text TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO comments (post_id, author, text) VALUES (1, 'ann', 'old comment')").Error)
	return db
}

func TestRunAddsCommentColumns(t *testing.T) {
	db := openLegacyDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(db, log))

	assert.True(t, db.Migrator().HasColumn(&Comment{}, "approved_comment"))
	assert.True(t, db.Migrator().HasColumn(&Comment{}, "created_date"))

	var approved bool
	require.NoError(t, db.Raw("SELECT approved_comment FROM comments WHERE author = 'ann'").Scan(&approved).Error)
	assert.False(t, approved)

	var missing int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM comments WHERE created_date IS NULL").Scan(&missing).Error)
	assert.Zero(t, missing)
}

func TestRunIsIdempotent(t *testing.T) {
	db := openLegacyDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(db, log))
	assert.NoError(t, Run(db, log))
}
