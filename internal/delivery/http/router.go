package http

import (
	"net/http"

	"consultation-service/internal/delivery/http/handler"
	"consultation-service/internal/delivery/http/middleware"
	"consultation-service/pkg/response"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	consultationHandler *handler.ConsultationHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	loggingMiddleware   *middleware.LoggingMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	consultationHandler *handler.ConsultationHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggingMiddleware *middleware.LoggingMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         authHandler,
		userHandler:         userHandler,
		consultationHandler: consultationHandler,
		auditLogHandler:     auditLogHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		loggingMiddleware:   loggingMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Users (protected). Static paths go before /users/{id}.
	users := api.PathPrefix("/users").Subrouter()
	users.Use(r.authMiddleware.Authenticate)
	users.HandleFunc("", r.userHandler.GetAll).Methods(http.MethodGet)
	users.HandleFunc("/paginated", r.userHandler.GetPage).Methods(http.MethodGet)
	users.HandleFunc("/count", r.userHandler.Count).Methods(http.MethodGet)
	users.HandleFunc("/count/type/{role}", r.userHandler.CountByRole).Methods(http.MethodGet)
	users.HandleFunc("/email/{email}", r.userHandler.GetByEmail).Methods(http.MethodGet)
	users.HandleFunc("/type/{role}", r.userHandler.GetByRole).Methods(http.MethodGet)
	users.HandleFunc("/{id}", r.userHandler.GetByID).Methods(http.MethodGet)
	users.HandleFunc("/{id}", r.userHandler.Update).Methods(http.MethodPut)
	users.HandleFunc("/{id}/change-password", r.userHandler.ChangePassword).Methods(http.MethodPatch)

	// User administration (admin only)
	usersAdmin := api.PathPrefix("/users").Subrouter()
	usersAdmin.Use(r.authMiddleware.Authenticate)
	usersAdmin.Use(middleware.RequireAdmin)
	usersAdmin.HandleFunc("", r.userHandler.Create).Methods(http.MethodPost)
	usersAdmin.HandleFunc("/{id}", r.userHandler.Deactivate).Methods(http.MethodDelete)
	usersAdmin.HandleFunc("/{id}/activate", r.userHandler.Activate).Methods(http.MethodPatch)

	// Consultations (protected)
	consultations := api.PathPrefix("/consultations").Subrouter()
	consultations.Use(r.authMiddleware.Authenticate)
	consultations.HandleFunc("", r.consultationHandler.GetAll).Methods(http.MethodGet)
	consultations.HandleFunc("", r.consultationHandler.Create).Methods(http.MethodPost)
	consultations.HandleFunc("/today", r.consultationHandler.GetByDate).Methods(http.MethodGet)
	consultations.HandleFunc("/{id}", r.consultationHandler.Update).Methods(http.MethodPut)
	consultations.HandleFunc("/{id}/confirm", r.consultationHandler.Confirm).Methods(http.MethodPatch)
	consultations.HandleFunc("/{id}/cancel", r.consultationHandler.Cancel).Methods(http.MethodPatch)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.router.Use(r.loggingMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
