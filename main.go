package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizfunnel/api/config"
	"quizfunnel/api/database"
	"quizfunnel/api/funnel"
	"quizfunnel/api/geo"
	"quizfunnel/api/handlers"
	"quizfunnel/api/middleware"
	"quizfunnel/api/store"
	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	operatorTokenTTL = 24 * time.Hour
	mirrorBatchSize  = 500
	mirrorInterval   = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&log.JSONFormatter{})
	}

	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, dbClient.DB); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to prepare PostgreSQL schema")
	}
	cancel()

	funnelStore := store.NewFunnelStore(dbClient.DB)
	leadStore := store.NewLeadStore(dbClient.DB)
	saleStore := store.NewSaleStore(dbClient.DB)
	commentStore := store.NewCommentStore(dbClient.DB)
	metricsStore := store.NewMetricsStore(dbClient.DB)
	operatorStore := store.NewOperatorStore(dbClient.DB)

	opts := funnel.Options{
		SessionTTL:        cfg.SessionTTL,
		EventDedupWindow:  cfg.EventDedupWindow,
		VisitDedupWindow:  cfg.VisitDedupWindow,
		AbandonmentWindow: cfg.AbandonmentWindow,
		GeoTimeout:        cfg.GeoTimeout,
		Policy:            utils.NewAttributionPolicy(cfg.WeakAttributionVals),
	}

	var analytics handlers.AnalyticsReader
	var mirror *store.BufferedMirror
	if cfg.ClickHouseEnabled() {
		chClient, err := database.NewClickHouseDB(cfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize ClickHouse database")
		}
		defer chClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.EnsureClickHouseSchema(ctx, chClient.Conn); err != nil {
			cancel()
			log.WithError(err).Fatal("Failed to prepare ClickHouse schema")
		}
		cancel()

		analyticsStore := store.NewAnalyticsStore(chClient)
		mirror = store.NewBufferedMirror(analyticsStore, mirrorBatchSize, mirrorInterval)
		opts.Mirror = mirror
		analytics = analyticsStore
	} else {
		log.Info("CLICKHOUSE_HOST not set, analytics warehouse disabled")
	}

	if cfg.GeoIPDBPath != "" {
		locator, err := geo.NewGeoIPLocator(cfg.GeoIPDBPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to open GeoIP database")
		}
		defer locator.Close()
		opts.Geolocator = locator
	}

	var cache handlers.MetricsCacher
	if cfg.RedisEnabled() {
		rdb, err := database.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to redis")
		}
		defer rdb.Close()
		cache = store.NewMetricsCache(rdb, cfg.MetricsCacheTTL)
	}

	tracker := funnel.NewTracker(funnelStore, opts)
	leadService := funnel.NewLeadService(leadStore, tracker, cfg.PhoneDefaultRegion)
	salesService := funnel.NewSalesService(saleStore, leadStore, cfg.PhoneDefaultRegion)

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, operatorTokenTTL)
	auth := middleware.NewAuth(issuer, middleware.Keys{
		Anon:       cfg.AnonKey,
		Service:    cfg.ServiceRoleKey,
		Automation: cfg.AutomationAPIKey,
	})

	authHandlers := handlers.NewAuthHandlers(operatorStore, issuer, cfg.AllowSignup)
	trackHandlers := handlers.NewTrackHandlers(tracker, analytics)
	leadHandlers := handlers.NewLeadHandlers(leadService, leadStore)
	commentHandlers := handlers.NewCommentHandlers(commentStore, commentStore)
	webhookHandlers := handlers.NewWebhookHandlers(salesService, cfg.WebhookSecret)
	statsHandlers := handlers.NewStatsHandlers(metricsStore, cache, funnelStore, saleStore)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbClient.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandlers.Signup)
			authGroup.POST("/login", authHandlers.Login)
			authGroup.POST("/logout", authHandlers.Logout)
		}

		api.POST("/webhooks/payment", webhookHandlers.Payment)

		public := api.Group("/")
		public.Use(auth.AnonRequired())
		{
			public.POST("/track/event", trackHandlers.TrackEvent)
			public.POST("/track/abandonment", trackHandlers.TrackAbandonment)
			public.POST("/leads", leadHandlers.SubmitLead)
			public.POST("/diagnostic", handlers.Analyze)
			public.GET("/quiz/questions", handlers.Questions)
			public.POST("/comments", commentHandlers.SubmitComment)
		}

		operator := api.Group("/")
		operator.Use(auth.OperatorRequired())
		{
			operator.GET("/leads/lookup", leadHandlers.Lookup)
			operator.POST("/leads/:id/tags", leadHandlers.AssignTags)
			operator.GET("/comments", commentHandlers.ListComments)

			stats := operator.Group("/stats")
			{
				stats.GET("/metrics", statsHandlers.GetMetrics)
				stats.GET("/visits", statsHandlers.ListVisits)
				stats.GET("/abandonments", statsHandlers.ListAbandonments)
				stats.GET("/leads", leadHandlers.ListLeads)
				stats.GET("/sales", statsHandlers.ListSales)
				stats.GET("/comments", commentHandlers.ListComments)
				stats.GET("/event-counts", trackHandlers.GetEventCountsOverTime)
				stats.GET("/unique-visitors", trackHandlers.GetUniqueVisitorsOverTime)
				stats.GET("/top-paths", trackHandlers.GetTopLandingPaths)
			}
		}

		api.DELETE("/data", auth.OperatorJWTRequired(), statsHandlers.ClearData)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Quiz funnel API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if mirror != nil {
		mirror.Close()
	}

	log.Info("Server exiting.")
}
