package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/adapters/repositories"
	"route-optimizer-service/internal/api"
	"route-optimizer-service/internal/api/handlers"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/platform/metrics"
	"route-optimizer-service/internal/services"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	if err := run(cfg); err != nil {
		l.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig) error {
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := repositories.InitSchema(conn); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(reg, "routeopt")

	opt := cfg.Optimizer
	fallback := distance.NewHaversine(opt.AverageSpeedKPH)
	optimizer := services.NewOptimizer(
		services.Sequencer{
			Model:         fallback,
			SpeedKPH:      opt.AverageSpeedKPH,
			ServiceTime:   opt.ServiceTime,
			MaxIterations: opt.TwoOptMaxIterations,
		},
		services.WithParallelism(opt.SequenceParallelism),
		services.WithOptimizerMetrics(recorder),
	)
	tracker := services.NewTracker(services.WithTrackerMetrics(recorder))
	routes := repositories.NewPostgresRouteRepository(conn)

	planner := &services.Planner{
		Optimizer:          optimizer,
		Tracker:            tracker,
		Fallback:           fallback,
		Routes:             routes,
		Profile:            profile(cfg),
		GeocodeParallelism: opt.SequenceParallelism,
	}

	if cfg.ORS.APIKey != "" {
		ors, err := newORSClient(cfg, conn)
		if err != nil {
			return err
		}
		planner.Geocoder = ors
		planner.Matrix = ors
		l.Info("OpenRouteService enabled")
	} else {
		l.Warn("ORS_API_KEY not set; geocoding disabled and straight-line distances in use")
	}

	routeHandler := &handlers.RouteHandler{Tracker: tracker, Routes: routes}

	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisAdapter(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		planner.Cache = cache.NewRedisResultCache(rdb, opt.ResultCacheTTL)

		archive := repositories.NewRedisProgressStore(rdb, opt.ProgressRetention)
		routeHandler.Archive = archive

		archiver := services.NewArchiver(tracker, archive, 0)
		go func() {
			if err := archiver.Run(ctx); err != nil {
				l.Warn("archiver stopped", zap.Error(err))
			}
		}()
		l.Info("Redis result cache and progress archive enabled")
	}

	router := api.NewRouter(api.Deps{
		Plans: &handlers.PlanHandler{
			Planner:             planner,
			DefaultDepotAddress: cfg.ORS.DepotAddress,
			DefaultVehicleCount: opt.DefaultVehicleCount,
			MaxVehicleCount:     opt.MaxVehicleCount,
		},
		Routes:  routeHandler,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ORS client uses persistent Postgres caches to avoid repeated geocode/matrix calls.
func newORSClient(cfg *config.AppConfig, conn *sql.DB) (*distance.ORSClient, error) {
	opts := []distance.ORSOption{
		distance.WithCaches(cache.NewSQLDistanceCache(conn), cache.NewSQLGeocodeCache(conn, cfg.ORS.GeocodeCacheMaxAge)),
	}
	if cfg.ORS.BaseURL != "" {
		opts = append(opts, distance.WithBaseURL(cfg.ORS.BaseURL))
	}
	return distance.NewORSClient(cfg.ORS.APIKey, opts...)
}

func profile(cfg *config.AppConfig) string {
	o := cfg.Optimizer
	return fmt.Sprintf("haversine:%g:%s:%d", o.AverageSpeedKPH, o.ServiceTime, o.TwoOptMaxIterations)
}
