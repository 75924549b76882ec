package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/notes-api/internal/auth"
	"github.com/redmonkez12/notes-api/internal/config"
	"github.com/redmonkez12/notes-api/internal/httputil"
	"github.com/redmonkez12/notes-api/internal/logging"
	"github.com/redmonkez12/notes-api/internal/note"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	noteHandler *note.Handler,
	authMiddleware *auth.Middleware,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/send-otp", authHandler.SendOTP)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.With(authMiddleware.RequireAuth).Put("/change-password", authHandler.ChangePassword)
	})

	r.Route("/api/notes", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Post("/create", noteHandler.Create)
		r.Get("/all", noteHandler.List)
		r.Get("/get-note/{id}", noteHandler.Get)
		r.Put("/update/{id}", noteHandler.Update)
		r.Delete("/delete/{id}", noteHandler.Delete)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
