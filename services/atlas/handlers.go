// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package atlas

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/graph"
)

// Handlers exposes the service over HTTP.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// scanRequest is the body of POST /scan.
type scanRequest struct {
	Root string `json:"root" binding:"required"`
}

// Scan handles POST /scan.
func (h *Handlers) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "root is required"})
		return
	}

	scan, err := h.service.Scan(c.Request.Context(), req.Root)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrScanInProgress):
			status = http.StatusConflict
		case errors.Is(err, graph.ErrRootInaccessible):
			status = http.StatusBadRequest
		case errors.Is(err, graph.ErrBuildCancelled):
			status = http.StatusRequestTimeout
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scan":  scan,
		"stats": scan.Result.Stats,
	})
}

// CurrentScan handles GET /scan.
func (h *Handlers) CurrentScan(c *gin.Context) {
	scan, err := h.service.Current()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scan":  scan,
		"stats": scan.Result.Stats,
	})
}

// ExportGraph handles GET /graph.
func (h *Handlers) ExportGraph(c *gin.Context) {
	data, err := h.service.Export()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// GraphStats handles GET /graph/stats.
func (h *Handlers) GraphStats(c *gin.Context) {
	graphStats, buildStats, err := h.service.Stats()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"graph": graphStats,
		"build": buildStats,
	})
}

// Node handles GET /node?id=<node-id>.
//
// Node IDs contain path separators, so the ID travels as a query
// parameter rather than a path segment.
func (h *Handlers) Node(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}
	node, err := h.service.NodeByID(id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, ErrNoScan) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, node)
}

// Neighbors handles GET /node/neighbors?id=<node-id>.
func (h *Handlers) Neighbors(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}
	incoming, outgoing, err := h.service.Neighbors(id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, ErrNoScan) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

// Symbols handles GET /symbols?name=<simple-name>.
func (h *Handlers) Symbols(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}
	entries, err := h.service.SymbolsByName(name)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": entries})
}

// Diagnostics handles GET /diagnostics.
func (h *Handlers) Diagnostics(c *gin.Context) {
	diags, err := h.service.Diagnostics()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, diags)
}

// ExternalModules handles GET /externals.
func (h *Handlers) ExternalModules(c *gin.Context) {
	mods, err := h.service.ExternalModules()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"external_modules": mods})
}

// SaveSnapshot handles POST /snapshots.
func (h *Handlers) SaveSnapshot(c *gin.Context) {
	meta, err := h.service.SaveSnapshot(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrSnapshotsDisabled):
			status = http.StatusNotImplemented
		case errors.Is(err, ErrNoScan):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, meta)
}

// ListSnapshots handles GET /snapshots.
func (h *Handlers) ListSnapshots(c *gin.Context) {
	metas, err := h.service.ListSnapshots(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrSnapshotsDisabled) {
			status = http.StatusNotImplemented
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": metas})
}

// GetSnapshot handles GET /snapshots/:id, returning the stored graph.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	id := c.Param("id")
	g, meta, err := h.service.LoadSnapshot(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrSnapshotsDisabled):
			status = http.StatusNotImplemented
		case errors.Is(err, graph.ErrSnapshotNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	data, err := g.Marshal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta":  meta,
		"graph": json.RawMessage(data),
	})
}

// DeleteSnapshot handles DELETE /snapshots/:id.
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteSnapshot(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrSnapshotsDisabled):
			status = http.StatusNotImplemented
		case errors.Is(err, graph.ErrSnapshotNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Health handles GET /healthz.
func (h *Handlers) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if scan, err := h.service.Current(); err == nil {
		status["scan_id"] = scan.ID
		status["scanned_at"] = scan.FinishedAt
	}
	c.JSON(http.StatusOK, status)
}
