package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pollblog-backend/database"
	"pollblog-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/polls/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/polls/:id", "418"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/polls/7", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/polls/:id", "418")))
}

func TestCollector(t *testing.T) {
	db := database.NewTestDB(t)
	require.NoError(t, db.Create(&models.Question{QuestionText: "q"}).Error)

	c := &Collector{DB: db}
	require.NoError(t, c.Collect(context.Background()))

	assert.Equal(t, float64(1), testutil.ToFloat64(tableRows.WithLabelValues("questions")))
	assert.Equal(t, float64(0), testutil.ToFloat64(tableRows.WithLabelValues("posts")))
}
