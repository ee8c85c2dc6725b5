package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeremiapane/workshop-app/config"
	"github.com/yeremiapane/workshop-app/middlewares"
	"github.com/yeremiapane/workshop-app/router"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

var (
	portOverride string

	rootCmd = &cobra.Command{
		Use:   "workshop",
		Short: "Workshop job card and service complaint backend",
		Long: `The workshop backend tracks equipment repair job cards, on-site
service complaints and the workers assigned to them.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE:  serve,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables and exit",
		RunE:  migrate,
	}
)

func init() {
	serveCmd.Flags().StringVarP(&portOverride, "port", "p", "", "Port to listen on, overrides PORT")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.ErrorLogger.Error(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.SetLogLevel(cfg.LogLevel)
	if portOverride != "" {
		cfg.Port = portOverride
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := config.Migrate(db); err != nil {
		config.CloseDB(db)
		return nil, err
	}
	return db, nil
}

func migrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	return config.CloseDB(db)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer config.CloseDB(db)

	store, uploadDir, err := config.NewAttachmentStore(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to set up attachment store")
	}
	uploader := storage.NewUploader(store)

	sweeper := services.NewOrphanSweeper(db, uploader, cfg.SweepInterval, cfg.SweepGrace)
	sweeper.Start()
	defer sweeper.Stop()

	r := router.SetupRouter(router.Options{
		JobCards:      services.NewJobCardService(db, services.NewSequenceGenerator(), uploader),
		OnSite:        services.NewOnSiteService(db),
		Workers:       services.NewWorkerService(db, uploader),
		UploadDir:     uploadDir,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimiter:   middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		EnableMetrics: cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server stopped")
		}
		return nil
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
