package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"weather-average-service/internal/cache"
	"weather-average-service/internal/client"
	"weather-average-service/internal/config"
	httphandler "weather-average-service/internal/http"
	"weather-average-service/internal/lifecycle"
	"weather-average-service/internal/observability"
	"weather-average-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient := client.NewOpenMeteoClient(
		cfg.GeocodeURL,
		cfg.ArchiveURL,
		cfg.GeocodeTimeout,
		cfg.ArchiveTimeout,
		cfg.ArchiveConnectTimeout,
	)

	cacheStore, healthConfig, cacheCloser := selectCacheBackend(cfg, logger)
	defer func() {
		if cacheCloser != nil {
			if err := cacheCloser(); err != nil {
				logger.Error("cache close", zap.Error(err))
			}
		}
	}()

	averageService := service.NewAverageService(
		weatherClient,
		cacheStore,
		cfg.CacheTTL,
		cfg.MaxDays,
		cfg.CoalesceEnabled,
		cfg.CoalesceTimeout,
	)

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	if len(cfg.WarmCities) > 0 {
		warmer := cache.NewWarmer(averageService, cfg.WarmDays, logger)
		if cfg.WarmInterval > 0 {
			// WarmPeriodic runs the initial warm itself.
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.WarmCities, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		} else {
			warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := warmer.Warm(warmCtx, cfg.WarmCities); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			warmCancel()
		}
	}

	handler := httphandler.NewHandler(averageService, healthConfig, logger, cfg.CityMaxLength)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/healthz", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/average", handler.GetAverageWeather).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	logger.Info("shutdown complete")
}

// selectCacheBackend picks the cache implementation from cfg.CacheURL. A
// shared backend is used only when it is reachable at startup; otherwise the
// in-process cache takes over silently since caching is best-effort.
func selectCacheBackend(cfg *config.Config, logger *zap.Logger) (cache.Cache, *httphandler.HealthConfig, func() error) {
	health := &httphandler.HealthConfig{CacheBackend: "memory"}

	switch {
	case strings.HasPrefix(cfg.CacheURL, "redis://"), strings.HasPrefix(cfg.CacheURL, "rediss://"):
		rc, err := cache.NewRedisCache(cfg.CacheURL)
		if err != nil {
			logger.Warn("redis cache unavailable, using in-memory cache", zap.Error(err))
			break
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, using in-memory cache", zap.Error(err))
			_ = rc.Close()
			break
		}
		logger.Info("cache backend: redis")
		health.CacheBackend = "redis"
		health.CachePing = rc.Ping
		return rc, health, rc.Close

	case strings.HasPrefix(cfg.CacheURL, "memcached://"):
		addrs := strings.TrimPrefix(cfg.CacheURL, "memcached://")
		mc, err := cache.NewMemcachedCache(addrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Warn("memcached cache unavailable, using in-memory cache", zap.Error(err))
			break
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = mc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("memcached unreachable, using in-memory cache", zap.Error(err))
			_ = mc.Close()
			break
		}
		logger.Info("cache backend: memcached", zap.String("addrs", addrs))
		health.CacheBackend = "memcached"
		health.CachePing = mc.Ping
		return mc, health, mc.Close
	}

	logger.Info("cache backend: in-memory")
	return cache.NewInMemoryCache(), health, nil
}
