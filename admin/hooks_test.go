package admin

import (
	"context"
	"testing"

	"pollblog-backend/cache"
	"pollblog-backend/database"
	"pollblog-backend/models"
	"pollblog-backend/mq"
	"pollblog-backend/repository"
	"pollblog-backend/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSite(t *testing.T) {
	db := database.NewTestDB(t)
	site, err := DefaultSite(db, discardLogger())
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, m := range site.Registrations() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"question", "post", "comment"}, names)

	seedPost(t, db, models.Comment{Author: "ann", Text: "needle in the text", CreatedDate: now})
	posts, err := site.List(context.Background(), staff, "post", ListParams{Search: "World"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, posts.Count)
	comments, err := site.List(context.Background(), staff, "comment", ListParams{Search: "needle"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, comments.Count)
}

type write struct {
	model string
	id    uint
}

func TestWriteHooks(t *testing.T) {
	site, _ := newSite(t)
	ctx := context.Background()

	var writes []write
	site.OnWrite(func(_ context.Context, model string, obj any) {
		q := obj.(*models.Question)
		writes = append(writes, write{model: model, id: q.ID})
	})

	created, err := site.Create(ctx, staff, "question", []byte(`{"question_text": "Hooked?", "pub_date": "2024-05-10T10:00:00Z"}`))
	require.NoError(t, err)
	id := created.(*models.Question).ID

	_, err = site.Update(ctx, staff, "question", id, []byte(`{"question_text": "Still hooked?"}`))
	require.NoError(t, err)
	require.NoError(t, site.Delete(ctx, staff, "question", id))

	assert.Equal(t, []write{
		{"question", id},
		{"question", id}, {"question", id},
		{"question", id},
	}, writes)

	_, err = site.Update(ctx, staff, "question", id, []byte(`{"question_text": "gone"}`))
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Len(t, writes, 4, "failed writes run no hooks")
}

func TestAdminWritesInvalidateCachedPosts(t *testing.T) {
	site, db := newSite(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	hot := cache.NewHotCache(client, cache.NewDistributedLockService(client), discardLogger())
	posts := repository.NewCachedPostRepository(repository.NewPostRepository(db), hot, discardLogger())
	site.OnWrite(posts.ForgetObject)

	p := seedPost(t, db, models.Comment{Author: "ann", Text: "hi", CreatedDate: now})
	key := repository.PostCacheKey(p.ID)

	_, err := posts.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))
	_, err = site.Update(ctx, staff, "comment", p.Comments[0].ID, []byte(`{"approved_comment": true}`))
	require.NoError(t, err)
	assert.False(t, mr.Exists(key), "comment change drops its post")

	_, err = posts.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, site.Delete(ctx, staff, "post", p.ID))
	assert.False(t, mr.Exists(key))

	_, err = posts.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	blog := service.NewBlogService(posts, mq.NewLocalBus(discardLogger()), discardLogger())
	_, err = blog.EditPost(ctx, staff, p.ID, "Back?", "No")
	assert.ErrorIs(t, err, service.ErrPostNotFound)

	var rows int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", p.ID).Count(&rows).Error)
	assert.Zero(t, rows)
}
