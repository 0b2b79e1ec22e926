package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/usmle-prep/backend/internal/auth"
	"github.com/usmle-prep/backend/internal/catalog"
	"github.com/usmle-prep/backend/internal/database"
	"github.com/usmle-prep/backend/internal/generator"
	"github.com/usmle-prep/backend/internal/middleware"
	"github.com/usmle-prep/backend/internal/progress"
	"github.com/usmle-prep/backend/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// The catalog is read once at startup and immutable afterwards.
	// Imports and approved drafts show up on the next start.
	catalogStore := catalog.NewStore(db)
	questions, err := catalogStore.LoadCatalog()
	if err != nil {
		log.Fatalf("Failed to load question catalog: %v", err)
	}
	cat, err := catalog.New(questions)
	if err != nil {
		log.Fatalf("Invalid question catalog: %v", err)
	}
	log.Printf("Loaded %d questions across %d systems", cat.Len(), len(cat.Systems()))

	progressStore := progress.NewStore(db)
	sessionService := session.NewService(cat, progressStore)

	authHandler := auth.NewHandler(db, progressStore)
	sessionHandler := session.NewHandler(sessionService)
	catalogHandler := catalog.NewHandler(cat, catalogStore, generator.NewGenerator())

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	sessionHandler.RegisterRoutes(protected)
	catalogHandler.RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
