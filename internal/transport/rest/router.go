package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"wellmind/internal/service"
	"wellmind/internal/transport/rest/handler"
	"wellmind/internal/transport/rest/middleware"
	"wellmind/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	AssessmentService *service.AssessmentService
	OutcomeService    *service.OutcomeService
	CrisisService     *service.CrisisService
	CatalogService    *service.CatalogService
	HealthService     *service.HealthService
	WSHub             *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	assessmentHandler := handler.NewAssessmentHandler(c.AssessmentService)
	outcomeHandler := handler.NewOutcomeHandler(c.OutcomeService)
	alertHandler := handler.NewAlertHandler(c.CrisisService)
	clusterHandler := handler.NewClusterHandler(c.CatalogService)
	healthHandler := handler.NewHealthHandler(c.HealthService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	r.HandleFunc("/health", healthHandler.Live).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/backends/health", healthHandler.Backends).Methods("GET", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/alerts", wsHandler.AlertsWS).Methods("GET")

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/assessments", assessmentHandler.Assess).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/chat/messages", assessmentHandler.Chat).Methods("POST", "OPTIONS")

	// Professional routes (require professional auth)
	proRoutes := v1.NewRoute().Subrouter()
	proRoutes.Use(authMW.RequireProfessional)

	proRoutes.HandleFunc("/users/at-risk", assessmentHandler.AtRisk).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/users/{userId}/token", authHandler.IssueUserToken).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/users/{userId}/history", assessmentHandler.History).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/users/{userId}/outcomes", outcomeHandler.ListByUser).Methods("GET", "OPTIONS")

	proRoutes.HandleFunc("/interventions/stats", outcomeHandler.Stats).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/interventions/{id}", outcomeHandler.RegisterIntervention).Methods("PUT", "OPTIONS")
	proRoutes.HandleFunc("/outcomes", outcomeHandler.Start).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/simulate", outcomeHandler.Simulate).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}", outcomeHandler.Get).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}/complete", outcomeHandler.Complete).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}/dropout", outcomeHandler.Dropout).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}/adherence", outcomeHandler.Adherence).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}/review", outcomeHandler.Review).Methods("POST", "OPTIONS")
	proRoutes.HandleFunc("/outcomes/{id}/archive", outcomeHandler.Archive).Methods("POST", "OPTIONS")

	proRoutes.HandleFunc("/alerts", alertHandler.List).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/alerts/{id}/ack", alertHandler.Acknowledge).Methods("POST", "OPTIONS")

	proRoutes.HandleFunc("/clusters", clusterHandler.List).Methods("GET", "OPTIONS")
	proRoutes.HandleFunc("/clusters/refresh", clusterHandler.Refresh).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
