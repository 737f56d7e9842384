package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	analyticsapp "gridpulse/internal/analytics/application"
	analyticsredis "gridpulse/internal/analytics/infrastructure/redis"
	apihttp "gridpulse/internal/api/http"
	"gridpulse/internal/auth"
	catalog "gridpulse/internal/catalog/domain"
	catalogrepo "gridpulse/internal/catalog/infrastructure/postgres"
	"gridpulse/internal/forecast"
	"gridpulse/internal/ingest/adapters"
	"gridpulse/internal/ingest/adapters/eia"
	"gridpulse/internal/ingest/adapters/meteo"
	ingestapp "gridpulse/internal/ingest/application"
	ingestrepo "gridpulse/internal/ingest/infrastructure/postgres"
	"gridpulse/internal/ingest/normalize"
	"gridpulse/internal/observability/metrics"
	timeseriesrepo "gridpulse/internal/timeseries/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	catalogRepo := catalogrepo.NewCatalogRepository(db)
	if cfg.CatalogSeedPath != "" {
		seed, err := catalog.LoadSeedFile(cfg.CatalogSeedPath)
		if err != nil {
			logger.Fatalf("catalog seed error: %v", err)
		}
		zones, regions, interfaces, err := seed.Entities()
		if err != nil {
			logger.Fatalf("catalog seed error: %v", err)
		}
		if err := catalogRepo.SeedCatalog(ctx, zones, regions, interfaces); err != nil {
			logger.Fatalf("catalog seed error: %v", err)
		}
		logger.Printf("catalog seeded: zones=%d regions=%d interfaces=%d", len(zones), len(regions), len(interfaces))
	}

	catalogCache, err := catalog.NewCache(catalogRepo, logger)
	if err != nil {
		logger.Fatalf("catalog cache error: %v", err)
	}
	if err := catalogCache.Refresh(ctx); err != nil {
		logger.Fatalf("catalog load error: %v", err)
	}
	go catalogCache.StartRefresh(ctx, cfg.CatalogRefreshInterval)

	factRepo := timeseriesrepo.NewFactRepository(db)
	factQuery := timeseriesrepo.NewFactQuery(db)
	watermarks, err := ingestrepo.NewWatermarkStore(db)
	if err != nil {
		logger.Fatalf("watermark store error: %v", err)
	}

	eiaClient, err := eia.NewClient(cfg.EIAAPIKey, catalogCache, eiaOptions(cfg)...)
	if err != nil {
		logger.Fatalf("eia client error: %v", err)
	}
	meteoClient, err := meteo.NewClient(cfg.MeteoAPIKey, catalogCache, meteoOptions(cfg)...)
	if err != nil {
		logger.Fatalf("meteo client error: %v", err)
	}

	normalizer, err := normalize.New(catalogCache)
	if err != nil {
		logger.Fatalf("normalizer error: %v", err)
	}

	orchestrator, err := ingestapp.NewOrchestrator(
		[]adapters.SourceAdapter{eiaClient, meteoClient},
		normalizer,
		factRepo,
		watermarks,
		ingestapp.Options{
			Overlap:  cfg.IngestOverlap,
			Backfill: cfg.IngestBackfill,
		},
		logger,
	)
	if err != nil {
		logger.Fatalf("orchestrator error: %v", err)
	}

	schedule := ingestapp.DefaultSchedule()
	if cfg.WeatherCron != "" {
		schedule.WeatherSpec = cfg.WeatherCron
	}
	if cfg.EnergyCron != "" {
		schedule.EnergySpec = cfg.EnergyCron
	}
	schedule.RunOnStart = cfg.IngestOnStart
	scheduler, err := ingestapp.NewScheduler(orchestrator, schedule, cfg.IngestTimeout, logger)
	if err != nil {
		logger.Fatalf("scheduler error: %v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("scheduler start error: %v", err)
	}

	var resultCache analyticsapp.ResultCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Printf("redis unavailable, result cache disabled: %v", err)
		} else {
			cache, err := analyticsredis.NewResultCache(redisClient, cfg.ResultCacheTTL)
			if err != nil {
				logger.Fatalf("result cache error: %v", err)
			}
			resultCache = cache
		}
	}

	engine, err := analyticsapp.NewEngine(factQuery, catalogCache, resultCache, cfg.QueryTimeout, logger)
	if err != nil {
		logger.Fatalf("engine error: %v", err)
	}
	reconciler, err := forecast.NewReconciler(factQuery, catalogCache, logger)
	if err != nil {
		logger.Fatalf("reconciler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	zonesHandler := apihttp.NewZonesHandler(catalogCache)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/energy/zones", zonesHandler)
	mux.Handle("/api/v1/energy/zones/", zonesHandler)
	mux.Handle("/api/v1/energy/lbmp/", apihttp.NewLBMPHandler(engine, catalogCache))
	mux.Handle("/api/v1/energy/load/", apihttp.NewLoadHandler(engine, catalogCache))
	mux.Handle("/api/v1/energy/fuel-mix", apihttp.NewFuelMixHandler(engine))
	mux.Handle("/api/v1/energy/renewable-fuel-mix", apihttp.NewRenewableFuelMixHandler(engine))
	mux.Handle("/api/v1/energy/interface-flow", apihttp.NewInterfaceFlowHandler(engine, catalogCache))
	mux.Handle("/api/v1/weather/regions", apihttp.NewRegionsHandler(catalogCache))
	mux.Handle("/api/v1/weather/series/", apihttp.NewWeatherSeriesHandler(engine, catalogCache))
	mux.Handle("/api/v1/weather/forecast/", apihttp.NewWeatherForecastHandler(engine, catalogCache))
	mux.Handle("/api/v1/weather/comparison/", apihttp.NewComparisonHandler(reconciler))
	mux.Handle("/api/v1/update", apihttp.NewUpdateHandler(orchestrator))
	mux.Handle("/api/v1/exports/series.xlsx", apihttp.NewExportSeriesXLSXHandler(engine))
	mux.Handle("/api/v1/exports/forecast-report.pdf", apihttp.NewExportForecastReportHandler(reconciler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL            string
	HTTPAddr               string
	JWTSecret              string
	CatalogSeedPath        string
	CatalogRefreshInterval time.Duration
	EIAAPIKey              string
	EIABaseURL             string
	MeteoAPIKey            string
	MeteoBaseURL           string
	IngestOverlap          time.Duration
	IngestBackfill         time.Duration
	IngestTimeout          time.Duration
	IngestOnStart          bool
	WeatherCron            string
	EnergyCron             string
	QueryTimeout           time.Duration
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	ResultCacheTTL         time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:            getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:               getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:              getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		CatalogSeedPath:        getenvDefault("CATALOG_SEED_PATH", ""),
		CatalogRefreshInterval: getenvDuration("CATALOG_REFRESH_INTERVAL", time.Hour),
		EIAAPIKey:              getenvDefault("EIA_API_KEY", ""),
		EIABaseURL:             getenvDefault("EIA_BASE_URL", ""),
		MeteoAPIKey:            getenvDefault("METEO_API_KEY", ""),
		MeteoBaseURL:           getenvDefault("METEO_BASE_URL", ""),
		IngestOverlap:          getenvDuration("INGEST_OVERLAP", 2*time.Hour),
		IngestBackfill:         getenvDuration("INGEST_BACKFILL", 7*24*time.Hour),
		IngestTimeout:          getenvDuration("INGEST_TIMEOUT", 15*time.Minute),
		IngestOnStart:          getenvDefault("INGEST_ON_START", "") == "true",
		WeatherCron:            getenvDefault("WEATHER_CRON", ""),
		EnergyCron:             getenvDefault("ENERGY_CRON", ""),
		QueryTimeout:           getenvDuration("QUERY_TIMEOUT", 30*time.Second),
		RedisAddr:              getenvDefault("REDIS_ADDR", ""),
		RedisPassword:          getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:                getenvIntDefault("REDIS_DB", 0),
		ResultCacheTTL:         getenvDuration("RESULT_CACHE_TTL", time.Minute),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.EIAAPIKey == "" {
		log.Fatal("EIA_API_KEY is required")
	}
	return cfg
}

func eiaOptions(cfg config) []eia.Option {
	var opts []eia.Option
	if cfg.EIABaseURL != "" {
		opts = append(opts, eia.WithBaseURL(cfg.EIABaseURL))
	}
	return opts
}

func meteoOptions(cfg config) []meteo.Option {
	var opts []meteo.Option
	if cfg.MeteoBaseURL != "" {
		opts = append(opts, meteo.WithBaseURL(cfg.MeteoBaseURL))
	}
	return opts
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
