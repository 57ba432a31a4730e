package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/optimization"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/services"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/composables"
	"github.com/syurii10/cloud-optimization-project/pkg/httpapi"
)

const maxOptimizeRequestBytes = 1 << 20

type OptimizationAPIController struct {
	optimizer *services.OptimizationService
}

func NewOptimizationAPIController(app application.Application) application.Controller {
	return &OptimizationAPIController{
		optimizer: app.Service(services.OptimizationService{}).(*services.OptimizationService),
	}
}

func (c *OptimizationAPIController) Key() string {
	return "optimization-api"
}

func (c *OptimizationAPIController) Register(r *mux.Router) {
	r.HandleFunc("/api/optimize", instrumentAPI("optimization.default", c.Optimize)).Methods(http.MethodPost)
	r.HandleFunc("/api/optimize/custom-weights", instrumentAPI("optimization.custom_weights", c.OptimizeCustomWeights)).Methods(http.MethodPost)
}

type optimizeRequest struct {
	Alternatives optimization.Alternatives `json:"alternatives"`
	Weights      optimization.Weights      `json:"weights"`
}

func (c *OptimizationAPIController) decode(w http.ResponseWriter, r *http.Request) (optimizeRequest, bool) {
	var req optimizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOptimizeRequestBytes))
	if err := dec.Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON body", err.Error(), nil)
		return req, false
	}
	return req, true
}

func (c *OptimizationAPIController) Optimize(w http.ResponseWriter, r *http.Request) {
	req, ok := c.decode(w, r)
	if !ok {
		return
	}
	if req.Alternatives == nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "Missing 'alternatives' in request body", "", nil)
		return
	}
	result, err := c.optimizer.Optimize(r.Context(), req.Alternatives)
	c.respond(w, r, result, err)
}

func (c *OptimizationAPIController) OptimizeCustomWeights(w http.ResponseWriter, r *http.Request) {
	req, ok := c.decode(w, r)
	if !ok {
		return
	}
	if req.Alternatives == nil || req.Weights == nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "Missing 'alternatives' or 'weights' in request body", "", nil)
		return
	}
	result, err := c.optimizer.OptimizeWithWeights(r.Context(), req.Alternatives, req.Weights)
	c.respond(w, r, result, err)
}

func (c *OptimizationAPIController) respond(w http.ResponseWriter, r *http.Request, result optimization.Result, err error) {
	switch {
	case err == nil:
		_ = httpapi.WriteJSON(w, http.StatusOK, &result)
	case errors.Is(err, optimization.ErrInvalidInput):
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error(), "", nil)
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("optimization failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "Optimization failed", err.Error(), nil)
	}
}
