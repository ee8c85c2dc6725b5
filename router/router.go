package router

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/workshop-app/controllers"
	"github.com/yeremiapane/workshop-app/metrics"
	"github.com/yeremiapane/workshop-app/middlewares"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/storage"
)

type Options struct {
	JobCards *services.JobCardService
	OnSite   *services.OnSiteService
	Workers  *services.WorkerService

	// UploadDir is served under /uploads when attachments are kept on disk.
	UploadDir     string
	AllowedOrigin string
	RateLimiter   *middlewares.RateLimiter
	EnableMetrics bool
}

var servedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true,
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = storage.MaxFilesPerReq * storage.MaxFileSize

	if opts.EnableMetrics {
		metrics.ConfigureMetrics(r)
	}

	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.AllowedOrigin))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.RateLimit())
	}

	if opts.UploadDir != "" {
		uploads := r.Group("/uploads")
		// Only attachment files are served from the upload directory.
		uploads.Use(func(c *gin.Context) {
			if !servedUploadExts[strings.ToLower(filepath.Ext(c.Request.URL.Path))] {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
		})
		uploads.Static("/", opts.UploadDir)
	}

	jobCardCtrl := controllers.NewJobCardController(opts.JobCards)
	onSiteCtrl := controllers.NewOnSiteController(opts.OnSite)
	workerCtrl := controllers.NewWorkerController(opts.Workers)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/ws/board", controllers.BoardHandler)

	api := r.Group("/api")

	// JOB CARDS
	jobCards := api.Group("/jobcards")
	{
		jobCards.POST("", jobCardCtrl.CreateJobCard)
		jobCards.GET("", jobCardCtrl.ListJobCards)
		jobCards.GET("/reports", jobCardCtrl.Reports)
		jobCards.PUT("/work-done", jobCardCtrl.MarkWorkDone)
		jobCards.PUT("/pending", jobCardCtrl.MarkPending)
		jobCards.PUT("/bill", jobCardCtrl.MarkBilled)
		jobCards.PUT("/return", jobCardCtrl.MarkReturned)
		jobCards.GET("/:id", jobCardCtrl.GetJobCard)
		jobCards.PUT("/:id", jobCardCtrl.EditJobCard)
		jobCards.POST("/:id/images", jobCardCtrl.AddImages)
	}

	// ON-SITE COMPLAINTS
	onSite := api.Group("/onsite")
	{
		onSite.POST("", onSiteCtrl.CreateOnSite)
		onSite.GET("", onSiteCtrl.ListOnSite)
		onSite.GET("/:id", onSiteCtrl.GetOnSite)
		onSite.PUT("/:id", onSiteCtrl.EditOnSite)
		onSite.PUT("/:id/assign-worker", onSiteCtrl.AssignWorker)
		onSite.PUT("/:id/status", onSiteCtrl.UpdateComplaintStatus)
		onSite.PUT("/:id/payment-status", onSiteCtrl.UpdatePaymentStatus)
	}

	// WORKERS
	workers := api.Group("/worker")
	{
		workers.POST("", workerCtrl.CreateWorker)
		workers.GET("", workerCtrl.ListWorkers)
		workers.GET("/specific", workerCtrl.GetWorker)
		workers.GET("/available", workerCtrl.ListAvailable)
		workers.PUT("/edit", workerCtrl.EditWorker)
		workers.PUT("/change-status", workerCtrl.ChangeStatus)
		workers.PUT("/assign", workerCtrl.AssignWorker)
		workers.PUT("/:id/image", workerCtrl.UpdateImage)
	}

	return r
}
