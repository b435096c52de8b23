package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/dashboard"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// abortWithError writes an ErrorResponse and counts it.
func abortWithError(c *gin.Context, status int, err error) {
	requestErrors.WithLabelValues(c.FullPath(), strconv.Itoa(status)).Inc()
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

// handleCreateRun simulates a new run, stores it and returns the report
// for the requested window and tolerances.
func (s *Server) handleCreateRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Distribution.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	cfg := s.simConfig(req)
	if cells := int64(cfg.NCoders) * int64(cfg.NCases); cells > s.cfg.MaxCells {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("run of %d coders x %d cases is %d cells, above the limit of %d", cfg.NCoders, cfg.NCases, cells, s.cfg.MaxCells))
		return
	}
	start := time.Now()
	res, err := sim.SimulateContext(c.Request.Context(), cfg)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, fmt.Errorf("simulation cancelled: %w", err))
		return
	}
	simulationDuration.WithLabelValues(string(res.StreamMode)).Observe(time.Since(start).Seconds())
	simulationCells.Observe(float64(res.NCoders() * res.NCases))

	report, err := s.computeReport(c, res, req.Window, req.Epsilons)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	}

	run := &Run{Request: req, Result: res}
	evicted := s.store.Add(run)
	runsCreated.WithLabelValues(string(res.Dist.Kind()), string(res.StreamMode)).Inc()
	runsEvicted.Add(float64(len(evicted)))
	runsStored.Set(float64(s.store.Len()))

	logrus.Infof("Created run %s: %d coders x %d cases (%s)", run.ID, res.NCoders(), res.NCases, accuracy.Describe(res.Dist))
	c.JSON(http.StatusCreated, RunResponse{Run: summarize(run), Report: report})
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs := s.store.List()
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, summarize(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, summarize(run))
}

func (s *Server) handleDeleteRun(c *gin.Context) {
	if !s.store.Delete(c.Param("id")) {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("run %q not found", c.Param("id")))
		return
	}
	runsStored.Set(float64(s.store.Len()))
	c.Status(http.StatusNoContent)
}

// handleStabilization recomputes the report of a stored run for a new
// window and tolerance set. The run is never re-simulated.
func (s *Server) handleStabilization(c *gin.Context) {
	run, ok := s.lookup(c)
	if !ok {
		return
	}
	w, err := queryInt(c, "window", 0)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	eps, err := queryEpsilons(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	report, err := s.computeReport(c, run.Result, w, eps)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCoder(c *gin.Context) {
	run, ok := s.lookup(c)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= run.Result.NCoders() {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("coder %q not found; run has %d coders", c.Param("index"), run.Result.NCoders()))
		return
	}
	w, err := queryInt(c, "window", 0)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	coder := run.Result.Coders[idx]
	w = stabilization.ClampWindow(w, run.Result.NCases)
	c.JSON(http.StatusOK, dashboard.BuildCoderView(coder.Index, coder.TrueAccuracy, coder.Discrepancies, w, run.Result.NCases))
}

func (s *Server) handleAccuracies(c *gin.Context) {
	run, ok := s.lookup(c)
	if !ok {
		return
	}
	bins, err := queryInt(c, "bins", accuracy.AccuracyBins)
	if err != nil || bins < 1 || bins > 1000 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bins must be an integer in [1, 1000]"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"bins": accuracy.Histogram(run.Result.TrueAccuracies(), bins)})
}

// handlePreview samples the requested distribution the way the preview
// panel does: from the accuracy stream of the given seed.
func (s *Server) handlePreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Distribution.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	}
	samples := req.Samples
	if samples == 0 {
		samples = accuracy.PreviewSamples
	}
	nBins := req.Bins
	if nBins == 0 {
		nBins = accuracy.PreviewBins
	}

	dist := accuracy.NewDistribution(req.Distribution)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sim.ResolveSeed(seed))).ForStream(sim.StreamAccuracy)
	bins := accuracy.Preview(dist, rng, samples, nBins)
	resp := PreviewResponse{
		Distribution: accuracy.Describe(dist),
		Bins:         bins,
		Points:       accuracy.HistogramPoints(bins),
	}
	if custom, ok := dist.(*accuracy.Custom); ok {
		resp.Density = custom.Points()
	}
	if req.Reference {
		resp.Reference = accuracy.ReferenceCurves(rng, accuracy.ParametricFamily(req.Distribution.Params), nBins, accuracy.ReferenceSamples)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) lookup(c *gin.Context) (*Run, bool) {
	run, ok := s.store.Get(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("run %q not found", c.Param("id")))
	}
	return run, ok
}

func (s *Server) simConfig(req RunRequest) sim.Config {
	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	}
	return sim.ClampConfig(sim.Config{
		NCases:         req.NCases,
		NCoders:        req.NCoders,
		Dist:           accuracy.NewDistribution(req.Distribution),
		Seed:           sim.NewSimulationKey(sim.ResolveSeed(seed)),
		StreamMode:     sim.StreamMode(req.StreamMode),
		Workers:        s.cfg.Workers,
		ResampleCustom: req.ResampleCustom,
	})
}

func (s *Server) computeReport(c *gin.Context, res *sim.SimulationResult, w int, eps []float64) (*stabilization.Report, error) {
	if len(eps) == 0 {
		eps = stabilization.DefaultEpsilons
	}
	w = stabilization.ClampWindow(w, res.NCases)
	start := time.Now()
	report, err := stabilization.ComputeAllParallel(c.Request.Context(), res.Trajectories(), eps, w, res.NCases, s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("stabilization cancelled: %w", err)
	}
	stabilizationDuration.Observe(time.Since(start).Seconds())
	return report, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

// queryEpsilons accepts eps=0.03,0.05 and repeated eps parameters.
func queryEpsilons(c *gin.Context) ([]float64, error) {
	var out []float64
	for _, raw := range c.QueryArray("eps") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			eps, err := strconv.ParseFloat(part, 64)
			if err != nil || !(eps > 0 && eps <= 1) {
				return nil, fmt.Errorf("eps must be numbers in (0, 1], got %q", part)
			}
			out = append(out, eps)
		}
	}
	if len(out) > MaxEpsilons {
		return nil, fmt.Errorf("at most %d tolerances per request, got %d", MaxEpsilons, len(out))
	}
	return out, nil
}
