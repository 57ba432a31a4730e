package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/snapshot"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/services"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/composables"
	"github.com/syurii10/cloud-optimization-project/pkg/httpapi"
)

const maxStartRequestBytes = 1 << 20

type DashboardAPIController struct {
	snapshots *services.SnapshotService
	tracker   *services.TrackerService
}

func NewDashboardAPIController(app application.Application) application.Controller {
	return &DashboardAPIController{
		snapshots: app.Service(services.SnapshotService{}).(*services.SnapshotService),
		tracker:   app.Service(services.TrackerService{}).(*services.TrackerService),
	}
}

func (c *DashboardAPIController) Key() string {
	return "dashboard-api"
}

func (c *DashboardAPIController) Register(r *mux.Router) {
	r.HandleFunc("/api/data", instrumentAPI("dashboard.data", c.GetData)).Methods(http.MethodGet)
	r.HandleFunc("/api/start-test", instrumentAPI("dashboard.start_test", c.StartTest)).Methods(http.MethodPost)
	r.HandleFunc("/api/test-status", instrumentAPI("dashboard.test_status", c.GetTestStatus)).Methods(http.MethodGet)
}

type dataResponse struct {
	Success      bool                               `json:"success"`
	Instances    map[string]snapshot.InstanceResult `json:"instances"`
	Optimization json.RawMessage                    `json:"optimization,omitempty"`
	Summary      json.RawMessage                    `json:"summary,omitempty"`
}

func (c *DashboardAPIController) GetData(w http.ResponseWriter, r *http.Request) {
	snap, err := c.snapshots.GetSnapshot(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to build dashboard snapshot")
		_ = httpapi.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dataResponse{
		Success:      true,
		Instances:    snap.Instances,
		Optimization: snap.Optimization,
		Summary:      snap.Summary,
	})
}

type startTestRequest struct {
	Instances []string     `json:"instances"`
	RPSLevels []int        `json:"rpsLevels"`
	Duration  int          `json:"duration"`
	Mode      testrun.Mode `json:"mode"`
}

type startTestResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	TestID  string         `json:"testId"`
	Config  testrun.Config `json:"config"`
}

func (c *DashboardAPIController) StartTest(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req startTestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStartRequestBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// A busy tracker answers the same way whatever the body holds.
		if c.tracker.GetStatus().Running {
			logger.WithError(testrun.ErrAlreadyRunning).Info("test start rejected")
			_ = httpapi.WriteFailure(w, http.StatusBadRequest, testrun.ErrAlreadyRunning.Error())
			return
		}
		_ = httpapi.WriteFailure(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	run, err := c.tracker.StartRun(r.Context(), testrun.Config{
		Instances: req.Instances,
		RPSLevels: req.RPSLevels,
		Duration:  req.Duration,
		Mode:      req.Mode,
	})
	switch {
	case err == nil:
	case errors.Is(err, testrun.ErrAlreadyRunning), errors.Is(err, testrun.ErrInvalidConfig):
		logger.WithError(err).Info("test start rejected")
		_ = httpapi.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	default:
		logger.WithError(err).Error("failed to start test")
		_ = httpapi.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, &startTestResponse{
		Success: true,
		Message: "Test started",
		TestID:  run.ID,
		Config:  run.Config,
	})
}

func (c *DashboardAPIController) GetTestStatus(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, c.tracker.GetStatus())
}
