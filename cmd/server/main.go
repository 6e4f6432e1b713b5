package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"intakedash/internal/config"
	"intakedash/internal/handlers/dashboard"
	apphttp "intakedash/internal/http"
	"intakedash/internal/logger"
	"intakedash/internal/models"
	"intakedash/internal/services/breaker"
	"intakedash/internal/services/datasource"
	"intakedash/internal/services/filters"
	"intakedash/internal/services/kvstore"
	"intakedash/internal/services/monitor"
	"intakedash/internal/services/querylayer"
	"intakedash/internal/services/snapshot"
	"intakedash/internal/services/storage"
	"intakedash/internal/version"
)

var (
	cfg      *config.Config
	log      *zap.Logger
	facade   *datasource.Facade
	loader   *snapshot.Loader
	coord    *filters.Coordinator
	health   *monitor.Monitor
	handlers *dashboard.Handlers
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Get())
		return
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err = logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting intake dashboard", version.Get().Fields()...)
	for _, w := range cfg.Warnings {
		log.Warn("Config", zap.String("warning", w))
	}

	if err := SetupDependencies(cfg); err != nil {
		log.Fatal("Failed to set up dependencies", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if health != nil {
		if err := health.Start(ctx); err != nil {
			log.Fatal("Failed to start health monitor", zap.Error(err))
		}
		defer health.Stop()
	}

	// Warm the cache so the first request does not pay for the fetch
	if loader != nil {
		if _, err := loader.Load(ctx); err != nil {
			log.Warn("Snapshot not loaded at startup", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("addr", cfg.ListenAddr),
			zap.String("mode", string(facade.Mode())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// SetupDependencies builds the data source chosen by c.StaticMode and the
// services around it. The mode is fixed for the life of the process.
func SetupDependencies(c *config.Config) error {
	cfg = c
	if log == nil {
		log = zap.NewNop()
	}
	ctx := context.Background()

	files, err := storage.New(c.Snapshot.Dir)
	if err != nil {
		return fmt.Errorf("snapshot storage: %w", err)
	}
	if files.IsSealed() && c.Snapshot.Password != "" {
		if err := files.Unlock(c.Snapshot.Password); err != nil {
			return fmt.Errorf("unlock snapshot: %w", err)
		}
	}

	kv, err := kvstore.Open(ctx, kvstore.Options{
		Backend:  c.KV.Backend,
		Files:    files,
		RedisURL: c.Redis.URL,
	})
	if err != nil {
		return fmt.Errorf("kv store: %w", err)
	}

	var src datasource.Source
	var switcher filters.OrganizationSwitcher
	health = nil
	loader = nil

	if c.StaticMode {
		var fetcher snapshot.Fetcher = snapshot.NewStorageFetcher(files)
		if c.Snapshot.URL != "" {
			fetcher = snapshot.NewHTTPFetcher(c.Snapshot.URL, breaker.New(breakerSettings(c, "snapshot"), log))
		}
		loader = snapshot.NewLoader(fetcher, kv, log)
		src = datasource.NewStaticSource(loader)
		switcher = loader
	} else {
		client := querylayer.New(c.QueryLayer.URL, breaker.New(breakerSettings(c, "query-layer"), log), log)
		src = datasource.NewLiveSource(client)
		if c.Health.Schedule != "" {
			health, err = monitor.New(client, c.Health.Schedule, log)
			if err != nil {
				return err
			}
		}
	}

	facade = datasource.NewFacade(src, log)
	coord = filters.New(facade.Live(), switcher, time.Now(), log)
	coord.Subscribe(func(f models.FilterState) {
		log.Debug("Filter changed",
			zap.String("start_date", f.StartISO()),
			zap.String("end_date", f.EndISO()),
			zap.Bool("ai_only", f.AIOnly),
			zap.String("supplier_id", f.SupplierID),
			zap.String("org_id", f.OrganizationID),
		)
	})

	handlers = dashboard.New(dashboard.Deps{
		Facade:  facade,
		Filters: coord,
		Loader:  loader,
		Log:     log,
	})
	return nil
}

func breakerSettings(c *config.Config, name string) breaker.Settings {
	return breaker.Settings{
		Name:             name,
		Timeout:          c.QueryLayer.Timeout,
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		BreakerTimeout:   c.Breaker.Timeout,
		FailureThreshold: c.Breaker.FailureThreshold,
	}
}

// SetupRouter creates the router with all routes configured
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)
	r.Get("/api/version", handleVersion)
	r.Handle("/metrics", promhttp.Handler())

	handlers.RegisterRoutes(r)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	body := map[string]interface{}{"mode": facade.Mode()}

	if health != nil {
		st := health.Status()
		body["query_layer"] = st
		if !st.Up {
			status = "degraded"
		}
	}
	if loader != nil {
		body["snapshot_loaded"] = loader.Loaded()
		if !loader.Loaded() {
			status = "degraded"
		}
	}
	body["status"] = status

	apphttp.JSON(w, http.StatusOK, body)
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, version.Get())
}
