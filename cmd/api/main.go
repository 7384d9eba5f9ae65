package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"realty-backend/internal/admin"
	"realty-backend/internal/auth"
	"realty-backend/internal/blog"
	"realty-backend/internal/cache"
	"realty-backend/internal/config"
	"realty-backend/internal/db"
	"realty-backend/internal/geo"
	"realty-backend/internal/geocode"
	"realty-backend/internal/handlers"
	"realty-backend/internal/inquiry"
	"realty-backend/internal/metrics"
	"realty-backend/internal/middleware"
	"realty-backend/internal/notifications"
	"realty-backend/internal/property"
	"realty-backend/internal/validation"
	"realty-backend/internal/zoho"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	var cachePinger handlers.Pinger
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		defer redisCache.Close()
		cacheStore = redisCache
		cachePinger = redisCache
	}

	geoCache, err := geocode.OpenFileCache(cfg.GeocodeCacheFile)
	if err != nil {
		// a corrupt cache file only costs extra geocoding calls
		logger.Warn("geocode cache unreadable, starting empty", slog.String("path", cfg.GeocodeCacheFile), slog.String("error", err.Error()))
		geoCache, _ = geocode.OpenFileCache("")
	}
	var geocoder geocode.Geocoder
	if cfg.GoogleAPIKey != "" {
		googleClient, err := geocode.NewClient(cfg.GoogleAPIKey, cfg.GeocodeRPS, geocode.WithRegionSuffix(cfg.GeocodeRegionSuffix))
		if err != nil {
			logger.Error("google geocoding setup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		geocoder = googleClient
		logger.Info("google geocoding enabled", slog.Int("rps", cfg.GeocodeRPS))
	} else {
		logger.Info("google geocoding disabled")
	}
	resolver := geocode.NewResolver(geo.Neighborhoods(), geoCache, geocoder, logger)

	crm := zoho.NewClient(zoho.Config{
		ClientID:     cfg.ZohoClientID,
		ClientSecret: cfg.ZohoClientSecret,
		RefreshToken: cfg.ZohoRefreshToken,
		AccountsURL:  cfg.ZohoAccountsURL,
		APIURL:       cfg.ZohoAPIURL,
	}, logger)
	var leadSink inquiry.CRM
	if crm != nil {
		leadSink = crm
		logger.Info("zoho crm enabled")
	} else {
		logger.Info("zoho crm disabled")
	}

	var notifier inquiry.Notifier
	mailer := notifications.NewBrevoClient(notifications.BrevoConfig{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.BrevoSenderEmail,
		SenderName:  cfg.BrevoSenderName,
		NotifyEmail: cfg.LeadNotifyEmail,
		Sandbox:     cfg.BrevoSandbox,
	})
	if mailer != nil {
		notifier = mailer
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	} else {
		logger.Info("brevo mailer disabled")
	}

	var tokens *auth.Manager
	if cfg.JWTSecret != "" {
		tokens = &auth.Manager{
			Secret:    []byte(cfg.JWTSecret),
			AccessTTL: cfg.SessionTTL(),
			Issuer:    "realty-backend",
		}
	}

	val := validation.New()

	propertyRepo := property.NewRepository(cols.Properties)
	propertyService := property.NewService(propertyRepo, cacheStore, cfg.CacheTTL(), resolver, cfg.Timezone, logger)
	backfiller := property.NewBackfiller(propertyRepo, resolver, cfg.BackfillWorkers, logger)
	propertyHandler := property.NewHandler(propertyService, backfiller, val, logger)

	inquiryService := inquiry.NewService(inquiry.NewRepository(cols.ContactInquiries), leadSink, notifier, cfg.Timezone, logger)
	inquiryHandler := inquiry.NewHandler(inquiryService, val, logger)

	blogService := blog.NewService(blog.NewRepository(cols.BlogPosts), cfg.Timezone)
	blogHandler := blog.NewHandler(blogService, val, logger)

	adminService := admin.NewService(admin.NewRepository(cols.BlogAdmins, cols.AdminSessions), tokens, cfg.SessionTTL(), logger)
	adminHandler := admin.NewHandler(adminService, val, logger, cfg.CookieSecure)

	var sessions middleware.SessionVerifier
	if tokens != nil {
		sessions = adminService
	}
	requireAdmin := middleware.AdminAuth(cfg.AdminAPIKey, sessions)

	health := &handlers.Server{
		Env:     cfg.Env,
		Mongo:   handlers.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
		Cache:   cachePinger,
		Log:     logger,
		Started: time.Now(),
	}

	jobs := cron.New()
	if _, err := jobs.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := adminService.PruneSessions(ctx); err != nil {
			logger.Warn("admin sessions prune: failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("admin sessions prune: ok", slog.Int64("deleted", n))
		}
	}); err != nil {
		logger.Error("cron setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	jobs.Start()

	var backfillCron *cron.Cron
	if cfg.BackfillCron != "" {
		backfillCron, err = backfiller.Schedule(cfg.BackfillCron, 10*time.Minute)
		if err != nil {
			logger.Error("backfill schedule invalid", slog.String("spec", cfg.BackfillCron), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	contactLimiter := middleware.NewRateLimiter(cfg.RateLimitContact, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", health.Health)

		api.Get("/all-properties", propertyHandler.List)
		api.Get("/all-properties-db", propertyHandler.List)
		api.Get("/filter-options", propertyHandler.FilterOptions)
		api.Get("/price-range", propertyHandler.PriceRange)
		api.Get("/property/{id}", propertyHandler.Get)
		api.Get("/radius-search", propertyHandler.RadiusSearch)
		api.Get("/radius-search-db", propertyHandler.RadiusSearch)
		api.Get("/property-wizard/matches", propertyHandler.WizardMatches)
		api.Post("/property-wizard/matches", propertyHandler.WizardMatches)

		api.With(contactLimiter.Middleware).Post("/contact", inquiryHandler.Contact)
		api.With(contactLimiter.Middleware).Post("/zoho/submit-form", inquiryHandler.SubmitForm)

		api.Get("/blog", blogHandler.PublicList)
		api.Get("/blog/{slug}", blogHandler.PublicGetBySlug)

		api.Route("/admin", func(a chi.Router) {
			a.With(contactLimiter.Middleware).Post("/login", adminHandler.Login)
			a.Post("/logout", adminHandler.Logout)

			a.Group(func(protected chi.Router) {
				protected.Use(requireAdmin)
				protected.Get("/me", adminHandler.Me)
				protected.Post("/users", adminHandler.CreateAdmin)

				protected.Post("/properties", propertyHandler.AdminCreate)
				protected.Put("/properties/{id}", propertyHandler.AdminUpdate)
				protected.Delete("/properties/{id}", propertyHandler.AdminDelete)
				protected.Post("/properties/backfill", propertyHandler.AdminBackfill)
				protected.Get("/properties/backfill", propertyHandler.AdminBackfillStatus)

				protected.Get("/inquiries", inquiryHandler.AdminList)
				protected.Get("/inquiries/{id}", inquiryHandler.AdminGetByID)
				protected.Patch("/inquiries/{id}/status", inquiryHandler.AdminUpdateStatus)
				protected.Post("/inquiries/{id}/resync", inquiryHandler.AdminResync)

				protected.Get("/blog", blogHandler.AdminList)
				protected.Post("/blog", blogHandler.AdminCreate)
				protected.Get("/blog/{id}", blogHandler.AdminGetByID)
				protected.Put("/blog/{id}", blogHandler.AdminUpdate)
				protected.Delete("/blog/{id}", blogHandler.AdminDelete)
			})
		})
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler(metrics.InitRegistry()))
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, c := range []*cron.Cron{jobs, backfillCron} {
		if c == nil {
			continue
		}
		select {
		case <-c.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
