package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/examstat/cutline/internal/api/http"
	"github.com/examstat/cutline/internal/auth"
	"github.com/examstat/cutline/internal/config"
	"github.com/examstat/cutline/internal/db"
	"github.com/examstat/cutline/internal/passcut"
	"github.com/examstat/cutline/internal/ratelimit"
	"github.com/examstat/cutline/internal/rescore"
	"github.com/examstat/cutline/internal/scoring"
	"github.com/examstat/cutline/internal/stats"
	"github.com/examstat/cutline/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	st := store.NewSQLStore(dbh, cfg.DBDriver)

	if cfg.SeedPath != "" {
		seed, err := store.LoadSeed(cfg.SeedPath)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		if err := seed.Apply(st); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
		log.Printf("seeded configuration from %s", cfg.SeedPath)
	}

	engine := scoring.NewEngine(st, st)
	statSvc := stats.NewService(st)
	predictor := passcut.NewPredictor(st, st)
	evaluator := passcut.NewEvaluator(predictor, st, st, passcut.Thresholds{
		MinParticipants: cfg.MinParticipants,
		MinCoverage:     cfg.MinCoverage,
		MinStability:    cfg.MinStability,
	})
	releaseMgr := passcut.NewManager(evaluator, st)
	orch := rescore.NewOrchestrator(st, st, st)

	authSvc := auth.NewService(cfg.AuthSecret, cfg.AdminUser, cfg.AdminPassHash)
	limiter := ratelimit.NewFixedWindow(cfg.RateLimitPerMin, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Submission + read paths; the read-heavy ones sit behind the limiter.
	r.Group(func(pr chi.Router) {
		pr.Use(ratelimit.Middleware(limiter))

		pr.Post("/exams/{examID}/submissions", api.SubmitScoreHandler(engine))
		pr.Get("/exams/{examID}/submissions", api.GetResultHandler(st))
		pr.Get("/exams/{examID}/statistics", api.StatisticsHandler(statSvc, st))
		pr.Get("/exams/{examID}/distribution", api.DistributionHandler(statSvc))
		pr.Get("/exams/{examID}/passcut", api.PredictionHandler(predictor))
		pr.Get("/exams/{examID}/passcut/evaluation", api.EvaluationHandler(evaluator))
		pr.Get("/exams/{examID}/releases", api.ListReleasesHandler(st))
		pr.Get("/releases/{releaseID}/snapshots", api.SnapshotsHandler(st))
		pr.Get("/rescores", api.ListRescoresHandler(st))
		pr.Post("/rescores/{eventID}/read", api.MarkRescoreReadHandler(st))
	})

	// Admin operations (JWT-gated).
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Post("/exams/{examID}/answer-key/corrections", api.CorrectKeyHandler(st))
		pr.Get("/exams/{examID}/answer-key/corrections", api.KeyCorrectionsHandler(st))
		pr.Post("/exams/{examID}/rescore", api.RescoreHandler(orch))
		pr.Post("/exams/{examID}/releases", api.CreateReleaseHandler(releaseMgr))
	})

	log.Printf("cutline gateway listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("server: %v", err)
	}
}
