package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"campus_wayfinder/internal/cache"
	"campus_wayfinder/internal/config"
	"campus_wayfinder/internal/controllers"
	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/geocode"
	"campus_wayfinder/internal/logger"
	"campus_wayfinder/internal/middleware"
	"campus_wayfinder/internal/overlay"
	"campus_wayfinder/internal/routes"
)

var (
	settings    config.Settings
	adminEmail  string
	adminPasswd string
)

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Hospital campus wayfinding backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		settings = config.Load()
		logger.Setup(settings.Log)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := directory.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logrus.Info("database migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the campus buildings",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := directory.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		d := directory.New(db, cache.NewRegistry(nil), settings.CacheRevalidate)
		n, err := d.Seed(cmd.Context())
		if err != nil {
			return err
		}
		logrus.WithField("added", n).Info("campus seeded")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		d := directory.New(db, cache.NewRegistry(nil), settings.CacheRevalidate)
		user, err := d.CreateAdmin(cmd.Context(), adminEmail, adminPasswd)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("admin created")
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email")
	createAdminCmd.Flags().StringVar(&adminPasswd, "password", "", "Admin password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	return config.InitDB(settings.DB, logger.NewGormLogger(logrus.StandardLogger(), settings.Log.SQL))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	if err := directory.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var bus cache.Bus
	if settings.AMQPURL != "" {
		amqpBus, err := cache.DialAMQP(ctx, settings.AMQPURL, 5)
		if err != nil {
			return err
		}
		defer amqpBus.Close()
		bus = amqpBus
	}
	registry := cache.NewRegistry(bus)
	go func() {
		if err := registry.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("cache invalidation listener stopped")
		}
	}()
	go registry.Janitor(ctx, time.Minute)

	google := geocode.NewGoogleClient(settings.GeocodingAPIKey,
		geocode.WithHTTPClient(&http.Client{Timeout: settings.GeocodeTimeout}))
	rendered := cache.New[uint, []byte]("overlay_images", settings.CacheRevalidate, directory.TagSites)
	registry.Register(rendered)

	ctl := &controllers.Controller{
		Directory: directory.New(db, registry, settings.CacheRevalidate),
		Geocoder:  geocode.NewCachedGeocoder(google, geocode.NewGormStore(db), settings.GeocodeCacheTTL),
		Places:    google,
		Auth:      middleware.NewAuth(settings.JWTSecret, settings.JWTTTL),
		Sessions:  cache.New[string, *overlay.Session]("alignment_sessions", settings.SessionTTL),
		Rendered:  rendered,
		Hub:       controllers.NewSiteHub(),
	}
	registry.Register(ctl.Sessions)
	go ctl.Broadcast(ctx)

	srv := &http.Server{
		Addr:    settings.HTTPAddr,
		Handler: middleware.EnableCORS(routes.SetupRouter(ctl), settings.CORSOrigins),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("server shutdown failed")
		}
	}()

	logrus.WithField("addr", settings.HTTPAddr).Info("server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
