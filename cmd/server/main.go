package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/James-Fry-2/train-data-api/internal/api"
	"github.com/James-Fry-2/train-data-api/internal/config"
	"github.com/James-Fry-2/train-data-api/internal/database"
	"github.com/James-Fry-2/train-data-api/internal/handler"
	"github.com/James-Fry-2/train-data-api/internal/journey"
	"github.com/James-Fry-2/train-data-api/internal/matcher"
	"github.com/James-Fry-2/train-data-api/internal/repository"
	"github.com/James-Fry-2/train-data-api/internal/station"
	"github.com/James-Fry-2/train-data-api/internal/store"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
)

func main() {
	// 加载配置
	cfg := config.Load()

	root, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Collaborators
	client := timetable.NewHTTPClient(timetable.Options{
		BaseURL:         cfg.TimetableBaseURL,
		AccessToken:     cfg.TimetableToken,
		Timeout:         cfg.CollaboratorTimeout,
		ServiceCacheTTL: cfg.ServiceCacheTTL,
	})
	stations := station.NewCachedDirectory(repository.NewStationRepository(db), 4096, cfg.StationCacheTTL)
	repos := repository.NewStore(db)

	var publisher journey.Publisher
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(store.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Printf("Redis unavailable, continuing without live fan-out: %v", err)
		} else {
			defer rs.Close()
			publisher = rs
		}
	}

	// Core pipeline
	m := matcher.New(client, cfg.Location(), cfg.CollaboratorTimeout, matcher.DefaultThresholds())
	thresholds := station.DefaultThresholds()
	detector := station.NewDetector(stations, client, repos, m, cfg.CollaboratorTimeout, thresholds)

	opts := journey.DefaultOptions()
	opts.CollaboratorTimeout = cfg.CollaboratorTimeout
	opts.TransitTimeout = cfg.TransitTimeout
	opts.SessionIdleTimeout = cfg.SessionIdleTimeout
	opts.Inertial.CentreMagnitudes = cfg.InertialCentreMagnitudes
	journeys := journey.NewService(detector, m, repos, publisher, opts)

	// 定期清理空闲会话
	go journeys.RunSessionSweeper(root, cfg.SessionSweepInterval)

	// 初始化路由
	router := api.SetupRouter(root, cfg, api.Handlers{
		Journey: handler.NewJourneyHandler(journeys),
		Station: handler.NewStationHandler(stations, detector, client, thresholds.RadiusKm, cfg.CollaboratorTimeout),
		Health:  handler.NewHealthHandler(db),
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-root.Done()

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}
