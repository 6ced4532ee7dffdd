// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("atlas.graph")
	meter  = otel.Meter("atlas.graph")

	buildDuration   metric.Float64Histogram
	buildTotal      metric.Int64Counter
	buildNodes      metric.Int64Histogram
	buildEdges      metric.Int64Histogram
	buildFileErrors metric.Int64Counter

	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		buildDuration, err = meter.Float64Histogram(
			"graph_build_duration_seconds",
			metric.WithDescription("Time to build a project graph"),
			metric.WithUnit("s"),
		)
		if err != nil {
			buildDuration = nil
		}
		buildTotal, err = meter.Int64Counter(
			"graph_build_total",
			metric.WithDescription("Total graph builds by outcome"),
		)
		if err != nil {
			buildTotal = nil
		}
		buildNodes, err = meter.Int64Histogram(
			"graph_build_nodes",
			metric.WithDescription("Nodes created per build"),
		)
		if err != nil {
			buildNodes = nil
		}
		buildEdges, err = meter.Int64Histogram(
			"graph_build_edges",
			metric.WithDescription("Edges created per build"),
		)
		if err != nil {
			buildEdges = nil
		}
		buildFileErrors, err = meter.Int64Counter(
			"graph_build_file_errors_total",
			metric.WithDescription("Per-file read and syntax errors across builds"),
		)
		if err != nil {
			buildFileErrors = nil
		}
	})
}

// startBuildSpan opens the top-level span for one graph build.
func startBuildSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.Build",
		trace.WithAttributes(
			attribute.String("graph.project_root", root),
		),
	)
}

// recordBuildMetrics emits build metrics once per Build call.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats, success bool) {
	initMetrics()

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	if buildDuration != nil {
		buildDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if buildTotal != nil {
		buildTotal.Add(ctx, 1, attrs)
	}
	if buildNodes != nil {
		buildNodes.Record(ctx, int64(stats.NodesCreated), attrs)
	}
	if buildEdges != nil {
		buildEdges.Record(ctx, int64(stats.EdgesCreated), attrs)
	}
	if buildFileErrors != nil && stats.FilesFailed > 0 {
		buildFileErrors.Add(ctx, int64(stats.FilesFailed), attrs)
	}
}

// setBuildSpanResult attaches summary attributes to a build span.
func setBuildSpanResult(span trace.Span, stats BuildStats, incomplete bool) {
	span.SetAttributes(
		attribute.Int("graph.files_discovered", stats.FilesDiscovered),
		attribute.Int("graph.files_parsed", stats.FilesParsed),
		attribute.Int("graph.files_failed", stats.FilesFailed),
		attribute.Int("graph.nodes_created", stats.NodesCreated),
		attribute.Int("graph.edges_created", stats.EdgesCreated),
		attribute.Bool("graph.incomplete", incomplete),
	)
}
