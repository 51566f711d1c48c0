package server

import (
	"time"

	"pkce-relay/internal/handlers"
	"pkce-relay/internal/middlewares"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRouter(ctx *middlewares.AppContext) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.MetricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	allowCredentials := true
	if ctx.Config.CORS.AllowCredentials != nil {
		allowCredentials = *ctx.Config.CORS.AllowCredentials
	}

	// preflight requests are answered before a session is loaded
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ctx.Config.CORS.AllowedOrigins,
		AllowedMethods:   ctx.Config.CORS.AllowedMethods,
		AllowedHeaders:   ctx.Config.CORS.AllowedHeaders,
		ExposedHeaders:   ctx.Config.CORS.ExposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           ctx.Config.CORS.MaxAgeSeconds,
	}))

	r.Use(ctx.SessionManager.LoadAndSave)

	r.Use(middlewares.AppContextMiddleware(ctx))

	r.Get("/login", ctx.HandlerFunc(handlers.GETLoginHandler))
	r.Get("/callback", ctx.HandlerFunc(handlers.GETCallbackHandler))
	r.Get("/user", ctx.HandlerFunc(handlers.GETUserHandler))
	r.Post("/logout", ctx.HandlerFunc(handlers.POSTLogoutHandler))
	r.Get("/status", ctx.HandlerFunc(handlers.GETStatusHandler))
	r.Get("/health", ctx.HandlerFunc(handlers.HandlerHealth))

	return r
}

func setupDebugRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/debug", middleware.Profiler())

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
