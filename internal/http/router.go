package http

import (
	"net/http"

	"inventar-backend/internal/handlers"
	"inventar-backend/internal/middleware"
	"inventar-backend/internal/realtime"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	itemHandler *handlers.ItemHandler,
	locationHandler *handlers.LocationHandler,
	changelogHandler *handlers.ChangelogHandler,
	reportHandler *handlers.ReportHandler,
	statsHandler *handlers.StatsHandler,
	backupHandler *handlers.BackupHandler,
	healthHandler *handlers.HealthHandler,
	hub *realtime.Hub,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Public routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	// Health and metrics
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	api.HandleFunc("/tags", itemHandler.ListTags).Methods("GET")

	// Items
	api.HandleFunc("/items", itemHandler.ListItems).Methods("GET")
	api.HandleFunc("/items", itemHandler.CreateItem).Methods("POST")
	api.HandleFunc("/items/{id:[0-9]+}", itemHandler.GetItem).Methods("GET")
	api.HandleFunc("/items/{id:[0-9]+}", itemHandler.UpdateItem).Methods("PUT")
	api.HandleFunc("/items/{id:[0-9]+}", itemHandler.DeleteItem).Methods("DELETE")
	api.HandleFunc("/items/{id:[0-9]+}/changelog", itemHandler.GetItemChangelog).Methods("GET")

	// Locations
	api.HandleFunc("/locations", locationHandler.ListLocations).Methods("GET")
	api.HandleFunc("/locations", locationHandler.CreateLocation).Methods("POST")
	api.HandleFunc("/locations/tree", locationHandler.GetTree).Methods("GET")
	api.HandleFunc("/locations/{id:[0-9]+}", locationHandler.GetLocation).Methods("GET")
	api.HandleFunc("/locations/{id:[0-9]+}", locationHandler.UpdateLocation).Methods("PUT")
	api.HandleFunc("/locations/{id:[0-9]+}", locationHandler.DeleteLocation).Methods("DELETE")
	api.HandleFunc("/locations/{id:[0-9]+}/path", locationHandler.GetPath).Methods("GET")
	api.HandleFunc("/locations/{id:[0-9]+}/changelog", locationHandler.GetLocationChangelog).Methods("GET")

	// Changelog and undo; static paths before {id}
	api.HandleFunc("/changelog", changelogHandler.ListChangelog).Methods("GET")
	api.HandleFunc("/changelog/report.pdf", reportHandler.GetChangelogPDF).Methods("GET")
	api.HandleFunc("/changelog/live", hub.ServeWS).Methods("GET")
	api.HandleFunc("/changelog/{id:[0-9]+}", changelogHandler.GetEntry).Methods("GET")
	api.HandleFunc("/changelog/{id:[0-9]+}/conflict", changelogHandler.GetConflict).Methods("GET")
	api.HandleFunc("/changelog/{id:[0-9]+}/undo", changelogHandler.UndoEntry).Methods("POST")

	// Admin-only
	admin := r.PathPrefix("/api").Subrouter()
	admin.Use(authMiddleware.RequireAdmin)
	admin.HandleFunc("/users", userHandler.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{id:[0-9]+}", userHandler.GetUser).Methods("GET")
	admin.HandleFunc("/backup", backupHandler.Download).Methods("GET")
	admin.HandleFunc("/backup/upload", backupHandler.Upload).Methods("POST")
	admin.HandleFunc("/backup/list", backupHandler.List).Methods("GET")

	adminHealth := r.PathPrefix("/health/detailed").Subrouter()
	adminHealth.Use(authMiddleware.RequireAdmin)
	adminHealth.HandleFunc("", healthHandler.DetailedHealth).Methods("GET")

	return r
}

// Wrap applies the outer middleware chain: recovery, request id and logging, CORS
func Wrap(r http.Handler, cors func(http.Handler) http.Handler) http.Handler {
	return middleware.PanicRecovery(middleware.RequestLogging(cors(r)))
}
