package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/report"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/services"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/composables"
	"github.com/syurii10/cloud-optimization-project/pkg/constants"
	"github.com/syurii10/cloud-optimization-project/pkg/httpapi"
)

// ReportAPIController exposes the analysis reports and charts. It also owns
// the /api/ fallback, so it must be registered after every other API
// controller.
type ReportAPIController struct {
	reports *services.ReportService
}

func NewReportAPIController(app application.Application) application.Controller {
	return &ReportAPIController{
		reports: app.Service(services.ReportService{}).(*services.ReportService),
	}
}

func (c *ReportAPIController) Key() string {
	return "report-api"
}

var reportRoutes = []struct {
	path string
	kind report.Kind
}{
	{"/api/results", report.KindOptimization},
	{"/api/sensitivity", report.KindSensitivity},
	{"/api/methods", report.KindMethodComparison},
	{"/api/monte-carlo", report.KindMonteCarlo},
	{"/api/cost", report.KindCostPrediction},
}

func (c *ReportAPIController) Register(r *mux.Router) {
	r.HandleFunc("/api", instrumentAPI("report.index", c.Index)).Methods(http.MethodGet)
	r.HandleFunc("/api/health", instrumentAPI("report.health", c.Health)).Methods(http.MethodGet)
	r.HandleFunc("/api/status", instrumentAPI("report.status", c.Status)).Methods(http.MethodGet)
	for _, route := range reportRoutes {
		r.HandleFunc(route.path, instrumentAPI("report."+string(route.kind), c.document(route.kind))).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/charts/{name}", instrumentAPI("report.chart", c.Chart)).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/api/").HandlerFunc(instrumentAPI("api.not_found", c.NotFound))
}

type apiIndex struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

func (c *ReportAPIController) Index(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, &apiIndex{
		Name:        constants.ServiceName + " API",
		Version:     constants.Version,
		Description: "Load-test results, optimization reports and test-run control for the cloud optimization dashboard",
		Endpoints: map[string]string{
			"GET /api":                          "This documentation",
			"GET /api/health":                   "Health check",
			"GET /api/data":                     "Aggregated load-test results per instance type",
			"POST /api/start-test":              "Launch the test orchestrator",
			"GET /api/test-status":              "State of the most recent test run",
			"GET /api/status":                   "Availability of reports and charts",
			"GET /api/results":                  "Latest optimization results",
			"GET /api/sensitivity":              "Sensitivity analysis results",
			"GET /api/methods":                  "Method comparison results (TOPSIS/SAW/WPM)",
			"GET /api/monte-carlo":              "Monte Carlo validation results",
			"GET /api/cost":                     "Cost prediction results",
			"GET /api/charts/{chart}":           "Visualization chart image",
			"POST /api/optimize":                "Run TOPSIS optimization with the default criteria weights",
			"POST /api/optimize/custom-weights": "Run TOPSIS optimization with custom criteria weights",
		},
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (c *ReportAPIController) Health(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, &healthResponse{
		Status:  "healthy",
		Service: constants.ServiceName,
		Version: constants.Version,
	})
}

func (c *ReportAPIController) Status(w http.ResponseWriter, r *http.Request) {
	availability, err := c.reports.Availability(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to check report availability")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error(), nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, availability)
}

func (c *ReportAPIController) document(kind report.Kind) http.HandlerFunc {
	def, _ := report.Lookup(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := c.reports.Document(r.Context(), kind)
		switch {
		case err == nil:
			_ = httpapi.WriteJSON(w, http.StatusOK, doc)
		case errors.Is(err, report.ErrReportNotFound):
			_ = httpapi.WriteError(w, http.StatusNotFound, def.NotFound, def.Hint, nil)
		default:
			composables.UseLogger(r.Context()).WithError(err).WithField("report", kind).Error("failed to read report")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "Failed to read report", err.Error(), nil)
		}
	}
}

// chartNotFoundResponse lists the available charts, closest matches to the
// requested name first.
type chartNotFoundResponse struct {
	Error           string   `json:"error"`
	AvailableCharts []string `json:"available_charts"`
}

func (c *ReportAPIController) Chart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path, err := c.reports.ChartPath(ctx, mux.Vars(r)["name"])
	if err == nil {
		if ct := sniffImageType(path); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		http.ServeFile(w, r, path)
		return
	}
	if !errors.Is(err, report.ErrChartNotFound) {
		composables.UseLogger(ctx).WithError(err).Error("failed to locate chart")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error(), nil)
		return
	}
	available, listErr := c.reports.SuggestCharts(ctx, mux.Vars(r)["name"])
	if listErr != nil {
		composables.UseLogger(ctx).WithError(listErr).Warn("failed to list charts")
		available = []string{}
	}
	_ = httpapi.WriteJSON(w, http.StatusNotFound, &chartNotFoundResponse{
		Error:           report.ErrChartNotFound.Message,
		AvailableCharts: available,
	})
}

// sniffImageType reports the image type found in the file's leading bytes,
// so a JPEG saved under a .png name is still labelled correctly. Anything
// that is not recognisably an image is left to the extension.
func sniffImageType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil || !strings.HasPrefix(mt.String(), "image/") {
		return ""
	}
	return mt.String()
}

func (c *ReportAPIController) NotFound(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusNotFound, "Endpoint not found", "See GET /api for API documentation", nil)
}
