package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/accountd/internal/api/handlers"
	"github.com/isdelr/accountd/internal/auth"
	"github.com/isdelr/accountd/internal/services"
)

// RouterOptions carries the HTTP-facing settings of the router.
type RouterOptions struct {
	AllowedOrigins []string
	Cookie         auth.CookieOptions
}

// NewRouter creates and configures a new Chi router.
func NewRouter(userService services.UserServiceProvider, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	userHandler := handlers.NewUserHandler(userService, opts.Cookie)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth.SessionMiddleware(userService))
		r.Get("/", userHandler.GetAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Patch("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)
		})
	})

	return r
}
