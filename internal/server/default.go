package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/configuration"
	"github.com/syurii10/cloud-optimization-project/pkg/httpapi"
	"github.com/syurii10/cloud-optimization-project/pkg/middleware"
	"github.com/syurii10/cloud-optimization-project/pkg/routing"
	"github.com/syurii10/cloud-optimization-project/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	rules, err := routing.LoadAllowlist(conf.RoutingAllowlistPath, routing.DefaultEntrypoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load routing allowlist")
	}
	classifier := routing.NewClassifier(rules)
	if conf.Prometheus.Enabled {
		classifier = classifier.With(routing.AllowlistRule{Prefix: conf.Prometheus.Path, Class: routing.RouteClassOps})
	}

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader
	loggerOpts.Classifier = classifier

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CorsAllowedOrigins...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
				Exempt: func(r *http.Request) bool {
					return classifier.ClassifyPath(r.URL.Path) == routing.RouteClassOps
				},
			}),
		)
	}

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, http.HandlerFunc(notFound), http.HandlerFunc(methodNotAllowed)), nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusNotFound, "Endpoint not found", "See GET /api for API documentation", nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported for "+r.URL.Path, nil)
}
