package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/service"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *service.Service, jwtSecret string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Logger: logger}
	usersHandler := &UsersHandler{DB: db, Logger: logger}
	instrumentsHandler := &InstrumentsHandler{Service: svc, Logger: logger}
	reservationsHandler := &ReservationsHandler{Service: svc, Logger: logger}

	authMW := AuthMiddleware(jwtSecret, db, logger)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Instruments: read (all roles), write (manager+).
	mux.Handle("GET /api/instruments", authMW(http.HandlerFunc(instrumentsHandler.List)))
	mux.Handle("POST /api/instruments", authMW(requireManager(http.HandlerFunc(instrumentsHandler.Create))))
	mux.Handle("GET /api/instruments/export", authMW(http.HandlerFunc(instrumentsHandler.Export)))
	mux.Handle("GET /api/instruments/{id}", authMW(http.HandlerFunc(instrumentsHandler.Get)))
	mux.Handle("PUT /api/instruments/{id}", authMW(requireManager(http.HandlerFunc(instrumentsHandler.Update))))
	mux.Handle("DELETE /api/instruments/{id}", authMW(requireManager(http.HandlerFunc(instrumentsHandler.Delete))))
	mux.Handle("GET /api/instruments/{id}/photo", authMW(http.HandlerFunc(instrumentsHandler.Photo)))

	// Reservations (all roles).
	mux.Handle("GET /api/reservations", authMW(http.HandlerFunc(reservationsHandler.List)))
	mux.Handle("POST /api/reservations", authMW(http.HandlerFunc(reservationsHandler.Create)))
	mux.Handle("GET /api/reservations/export", authMW(http.HandlerFunc(reservationsHandler.Export)))
	mux.Handle("GET /api/reservations/{id}", authMW(http.HandlerFunc(reservationsHandler.Get)))
	mux.Handle("PUT /api/reservations/{id}", authMW(http.HandlerFunc(reservationsHandler.Update)))
	mux.Handle("DELETE /api/reservations/{id}", authMW(http.HandlerFunc(reservationsHandler.Delete)))

	return mux
}
