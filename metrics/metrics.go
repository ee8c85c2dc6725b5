// Package metrics exposes the workshop counters scraped from /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

var (
	JobCardsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workshop_job_cards_created_total",
		Help: "The total number of job cards created",
	})

	JobCardTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshop_job_card_transitions_total",
		Help: "The total number of job card status transitions by target status",
	}, []string{"status"})

	AttachmentUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshop_attachment_uploads_total",
		Help: "The total number of attachment uploads by result",
	}, []string{"result"})

	AttachmentDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshop_attachment_deletes_total",
		Help: "The total number of attachment deletions by result",
	}, []string{"result"})

	OrphansSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workshop_orphans_swept_total",
		Help: "The total number of unreferenced job card images removed by the sweeper",
	})
)

// ConfigureMetrics registers the gin request metrics and the /metrics route.
func ConfigureMetrics(engine *gin.Engine) {
	prometheusMonitor := ginprometheus.NewPrometheus("gin")
	prometheusMonitor.Use(engine)
}
