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

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the atlas API on a router group.
//
// Routes:
//
//	POST   /scan            - run a project scan
//	GET    /scan            - current scan generation
//	GET    /graph           - export the graph as JSON
//	GET    /graph/stats     - graph and build statistics
//	GET    /node            - node lookup by ?id=
//	GET    /node/neighbors  - edges of a node by ?id=
//	GET    /symbols         - index lookup by ?name=
//	GET    /diagnostics     - file errors and unresolved references
//	GET    /externals       - external module summary
//	POST   /snapshots       - persist the current graph
//	GET    /snapshots       - list stored snapshots
//	GET    /snapshots/:id   - load one snapshot
//	DELETE /snapshots/:id   - delete one snapshot
//	GET    /healthz         - liveness probe
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/scan", h.Scan)
	rg.GET("/scan", h.CurrentScan)

	graphGroup := rg.Group("/graph")
	{
		graphGroup.GET("", h.ExportGraph)
		graphGroup.GET("/stats", h.GraphStats)
	}

	nodeGroup := rg.Group("/node")
	{
		nodeGroup.GET("", h.Node)
		nodeGroup.GET("/neighbors", h.Neighbors)
	}

	rg.GET("/symbols", h.Symbols)
	rg.GET("/diagnostics", h.Diagnostics)
	rg.GET("/externals", h.ExternalModules)

	snapGroup := rg.Group("/snapshots")
	{
		snapGroup.POST("", h.SaveSnapshot)
		snapGroup.GET("", h.ListSnapshots)
		snapGroup.GET("/:id", h.GetSnapshot)
		snapGroup.DELETE("/:id", h.DeleteSnapshot)
	}

	rg.GET("/healthz", h.Health)
}
