package routinggates

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalserver "github.com/syurii10/cloud-optimization-project/internal/server"
	"github.com/syurii10/cloud-optimization-project/modules"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/configuration"
	"github.com/syurii10/cloud-optimization-project/pkg/eventbus"
	"github.com/syurii10/cloud-optimization-project/pkg/metrics"
	"github.com/syurii10/cloud-optimization-project/pkg/routing"
)

// buildMainServerRouter assembles the router the way cmd/server does.
func buildMainServerRouter(t *testing.T) *mux.Router {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>dashboard</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1\n"), 0o600))
	t.Setenv("ROOT_DIR", root)

	conf, err := configuration.New(nil)
	require.NoError(t, err)
	t.Cleanup(conf.Unload)

	logger, _ := test.NewNullLogger()
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	require.NoError(t, modules.Load(app, modules.BuiltInModules(conf)...))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	require.NoError(t, err)
	return srv.Router()
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, "http://example.com"+path, nil)
	req.RemoteAddr = "192.0.2.10:5000"
	router.ServeHTTP(rr, req)
	return rr
}

func TestExposureBaseline_DoesNotRegisterDebugOrTestRoutes(t *testing.T) {
	paths := collectRoutePaths(t, buildMainServerRouter(t))

	var offending []string
	for _, p := range paths {
		switch {
		case routing.HasPathPrefixOnBoundary(p, "/_dev"),
			routing.HasPathPrefixOnBoundary(p, "/debug/pprof"),
			routing.HasPathPrefixOnBoundary(p, "/__test__"):
			offending = append(offending, p)
		}
	}

	if len(offending) > 0 {
		sort.Strings(offending)
		t.Fatalf("unexpected debug/test routes registered:\n%s", strings.Join(offending, "\n"))
	}
}

func TestExposureBaseline_APIRoutesAreClassified(t *testing.T) {
	classifier := routing.NewClassifier(routing.DefaultRules())
	paths := collectRoutePaths(t, buildMainServerRouter(t))
	require.Contains(t, paths, "/api/data")
	require.Contains(t, paths, "/debug/prometheus")

	for _, p := range paths {
		if !routing.HasPathPrefixOnBoundary(p, "/api") {
			continue
		}
		class := classifier.ClassifyPath(p)
		assert.True(t, class.IsJSON(), "%s classified as %s", p, class)
	}
}

func TestExposureBaseline_MetricsNotShadowedByPages(t *testing.T) {
	rr := serve(buildMainServerRouter(t), http.MethodGet, "/debug/prometheus")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
}

func TestExposureBaseline_UI404_NotForcedJSON(t *testing.T) {
	rr := serve(buildMainServerRouter(t), http.MethodGet, "/__nonexistent_ui__")

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotEqual(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestExposureBaseline_DotfilesHidden(t *testing.T) {
	rr := serve(buildMainServerRouter(t), http.MethodGet, "/.env")

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "SECRET")
}

func TestExposureBaseline_API404_IsJSON(t *testing.T) {
	rr := serve(buildMainServerRouter(t), http.MethodGet, "/api/__nonexistent__")

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var payload apiError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, "Endpoint not found", payload.Error)
	assert.Equal(t, "See GET /api for API documentation", payload.Message)
}

func TestExposureBaseline_RateLimitExemptsOpsEndpoints(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_GLOBAL_RPS", "1")
	router := buildMainServerRouter(t)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/data").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/api/data").Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health").Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/debug/prometheus").Code)
	}
}

func collectRoutePaths(t *testing.T, router *mux.Router) []string {
	t.Helper()

	var paths []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		p, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		if strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
		return nil
	})
	require.NoError(t, err)
	return paths
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
