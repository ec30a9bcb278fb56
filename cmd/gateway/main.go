package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	api "github.com/shandley/convene-sub000/internal/api/http"
	auth "github.com/shandley/convene-sub000/internal/auth/middleware"
	"github.com/shandley/convene-sub000/internal/config"
	"github.com/shandley/convene-sub000/internal/db"
	"github.com/shandley/convene-sub000/internal/program"
	"github.com/shandley/convene-sub000/internal/rbac"
	"github.com/shandley/convene-sub000/internal/review"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seedAdmin(ctx, dbh, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	reviews := review.NewSQLStore(dbh)
	programs := program.NewSQLStore(dbh)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT -> subject/role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Reviewer scoring flow
		pr.With(rbac.RequireAny("scores:view-own", "scores:view-all")).
			Get("/reviews/{assignmentID}/scores", api.GetScoresHandler(reviews))
		pr.With(rbac.Require("scores:write-own")).
			Post("/reviews/{assignmentID}/scores", api.SubmitScoresHandler(reviews))
		pr.With(rbac.Require("scores:write-own")).
			Delete("/reviews/{assignmentID}/scores", api.ClearScoresHandler(reviews))
		pr.With(rbac.Require("review:feedback")).
			Put("/reviews/{assignmentID}/feedback", api.UpdateFeedbackHandler(reviews))

		// Assignments
		pr.With(rbac.Require("assignment:create")).
			Post("/assignments", api.CreateAssignmentHandler(reviews))
		pr.With(rbac.RequireAny("assignment:view-own", "assignment:view-all")).
			Get("/assignments", api.ListAssignmentsHandler(reviews))

		// Programs, applications, criteria
		pr.With(rbac.Require("program:create")).
			Post("/programs", api.CreateProgramHandler(programs))
		pr.With(rbac.Require("program:view")).
			Get("/programs", api.ListProgramsHandler(programs))
		pr.With(rbac.Require("program:view")).
			Get("/programs/{programID}", api.GetProgramHandler(programs))
		pr.With(rbac.Require("application:create")).
			Post("/programs/{programID}/applications", api.CreateApplicationHandler(programs))
		pr.With(rbac.Require("application:view-all")).
			Get("/programs/{programID}/applications", api.ListApplicationsHandler(programs))
		pr.With(rbac.Require("application:view-own")).
			Get("/applications/mine", api.ListOwnApplicationsHandler(programs))
		pr.With(rbac.Require("criteria:manage")).
			Put("/programs/{programID}/criteria", api.UpsertCriterionHandler(programs))
		pr.With(rbac.Require("criteria:manage")).
			Delete("/programs/{programID}/criteria/{criterionID}", api.DisableCriterionHandler(programs))
		pr.With(rbac.Require("program:view")).
			Get("/programs/{programID}/criteria", api.ListCriteriaHandler(programs))

		// Users (admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// seedAdmin makes sure a bootstrap admin exists so a fresh install can log
// in. Without ADMIN_PASS_HASH a default password is seeded in offline mode
// only.
func seedAdmin(ctx context.Context, dbh *sql.DB, cfg config.Config) error {
	var exist int
	err := dbh.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, cfg.AdminUser).Scan(&exist)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	hash := cfg.AdminPassHash
	if hash == "" {
		if cfg.Mode == config.ModeOnline {
			return errors.New("ADMIN_PASS_HASH required in online mode")
		}
		b, err := bcrypt.GenerateFromPassword([]byte("admin"), 12)
		if err != nil {
			return err
		}
		hash = string(b)
		log.Printf("seeded offline admin %q with default password", cfg.AdminUser)
	}
	_, err = dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'admin',$4)`,
		"u-"+cfg.AdminUser, cfg.AdminUser, hash, time.Now().Unix())
	return err
}
