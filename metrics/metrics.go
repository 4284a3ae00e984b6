package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollblog_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pollblog_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	VotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollblog_votes_total",
		Help: "Votes recorded.",
	})

	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollblog_posts_published_total",
		Help: "Publish actions, including re-publishing.",
	})

	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollblog_comments_total",
		Help: "Comment lifecycle transitions.",
	}, []string{"state"})

	tableRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pollblog_table_rows",
		Help: "Row count for a table.",
	}, []string{"table"})
)

// Comment states used as label values.
const (
	CommentSubmitted = "submitted"
	CommentApproved  = "approved"
	CommentRemoved   = "removed"
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
