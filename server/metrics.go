package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsCreated counts simulations started through the API.
	// Labels: distribution (kind), stream_mode
	runsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stabsim",
		Subsystem: "runs",
		Name:      "created_total",
		Help:      "Total simulation runs created",
	}, []string{"distribution", "stream_mode"})

	// runsEvicted counts runs dropped from the bounded store.
	runsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stabsim",
		Subsystem: "runs",
		Name:      "evicted_total",
		Help:      "Total runs evicted from the in-memory store",
	})

	// runsStored tracks how many runs the store currently holds.
	runsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stabsim",
		Subsystem: "runs",
		Name:      "stored",
		Help:      "Runs currently held in memory",
	})

	// simulationDuration measures Simulate wall time.
	// Labels: stream_mode
	simulationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stabsim",
		Subsystem: "simulation",
		Name:      "duration_seconds",
		Help:      "Fixed-totals simulation latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stream_mode"})

	// simulationCells records nCoders x nCases per run.
	simulationCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stabsim",
		Subsystem: "simulation",
		Name:      "cells",
		Help:      "Discrepancy values produced per run (coders x cases)",
		Buckets:   prometheus.ExponentialBuckets(1000, 10, 7),
	})

	// stabilizationDuration measures one report computation.
	stabilizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stabsim",
		Subsystem: "stabilization",
		Name:      "duration_seconds",
		Help:      "Stabilization report latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// requestErrors counts 4xx/5xx responses.
	// Labels: route, status
	requestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stabsim",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "API error responses by route and status code",
	}, []string{"route", "status"})
)
