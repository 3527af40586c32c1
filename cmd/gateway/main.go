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

	api "github.com/stepwise-health/stepwise/internal/api/http"
	"github.com/stepwise-health/stepwise/internal/attempt"
	auth "github.com/stepwise-health/stepwise/internal/auth/middleware"
	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/config"
	"github.com/stepwise-health/stepwise/internal/db"
	"github.com/stepwise-health/stepwise/internal/rbac"
	syncx "github.com/stepwise-health/stepwise/internal/sync"
)

func main() {
	// .env is optional; env vars win either way.
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("[FATAL] db open failed: %v", err)
	}

	catStore := catalog.NewSQLStore(dbh)
	attemptStore := attempt.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh)
	cache := attempt.NewSessionCache()
	svc := attempt.NewService(attemptStore, catStore, cache, events)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	r.Post("/auth/staff/login", auth.StaffLoginHandler(authSvc, dbh))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Participant flow
		pr.With(rbac.Require("dashboard:view")).
			Get("/dashboard", api.DashboardHandler(attemptStore, catStore))
		pr.With(rbac.Require("attempt:start")).
			Post("/assessments/{stepNumber}/start", api.StartAssessmentHandler(svc))
		pr.With(rbac.Require("attempt:answer")).
			Get("/questions/{questionID}", api.ShowQuestionHandler(svc, attemptStore, catStore))
		pr.With(rbac.Require("attempt:answer")).
			Post("/questions/{questionID}", api.AnswerQuestionHandler(svc))
		pr.With(rbac.Require("attempt:finalize")).
			Post("/assessments/complete", api.CompleteAssessmentHandler(svc))
		pr.With(rbac.Require("attempt:view-own")).
			Post("/attempts/{attemptID}/dismiss-approval", api.DismissApprovalHandler(attemptStore))

		// Review flow (clinician/admin)
		pr.With(rbac.Require("review:list")).
			Get("/review/pending", api.PendingReviewsHandler(attemptStore))
		pr.With(rbac.Require("review:view")).
			Get("/review/{attemptID}", api.ReviewDetailHandler(attemptStore, catStore))
		pr.With(rbac.Require("review:decide")).
			Post("/review/{attemptID}", api.SubmitReviewHandler(svc))
		pr.With(rbac.Require("review:annotate")).
			Post("/review/{attemptID}/responses/{questionID}", api.AnnotateResponseHandler(attemptStore))

		// Catalog (read for participants and reviewers; writes admin-only)
		pr.With(rbac.RequireAny("attempt:start", "review:list")).
			Get("/catalog/steps", api.ListStepsHandler(catStore))
		pr.With(rbac.Require("catalog:write")).
			Post("/catalog/steps", api.PutStepHandler(catStore, cfg.ProgramSteps))
		pr.With(rbac.Require("catalog:write")).
			Post("/catalog/assessments", api.PutAssessmentHandler(catStore))
		pr.With(rbac.Require("catalog:write")).
			Post("/catalog/questions", api.PutQuestionHandler(catStore))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("[STARTUP] listening on %s (db=%s, steps=%d)", cfg.HTTPAddr, cfg.DBDriver, cfg.ProgramSteps)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
