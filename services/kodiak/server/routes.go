// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/kodiak/services/kodiak"
)

// RegisterRoutes registers all kodiak routes with the router.
//
// Description:
//
//	Registers the dispatch, buffer, and introspection endpoints with the
//	given router. The router should already have any required middleware
//	applied.
//
// Inputs:
//
//	router - Gin router
//	handlers - The handlers instance
//
// Dispatch Endpoints:
//
//	POST /v1/events - Dispatch one editor event
//
// Buffer Endpoints:
//
//	POST /v1/buffers/:op - Apply a buffer operation (open, replace, clear, remove)
//	GET  /v1/buffers - List open buffers
//	GET  /v1/sync - Websocket sync stream
//
// Introspection Endpoints:
//
//	GET  /v1/sections - List sections a tag request would activate
//	GET  /v1/drift - Compare a buffer against its file on disk
//
// Operational Endpoints:
//
//	GET  /healthz - Health check
//	GET  /metrics - Prometheus scrape endpoint
//
// Example:
//
//	svc, _ := kodiak.New(cfg, kodiak.WithLogger(log))
//	handlers := server.NewHandlers(svc, log)
//
//	router := gin.New()
//	server.RegisterRoutes(router, handlers)
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	router.GET("/healthz", handlers.HandleHealthz)
	router.GET("/metrics", handlers.HandleMetrics)

	v1 := router.Group("/v1")
	{
		// Event dispatch
		v1.POST("/events", handlers.HandleEvent)

		// Buffer lifecycle
		v1.POST("/buffers/:op", handlers.HandleBufferOp)
		v1.GET("/buffers", handlers.HandleListBuffers)
		v1.GET("/sync", handlers.HandleSync)

		// Introspection
		v1.GET("/sections", handlers.HandleSections)
		v1.GET("/drift", handlers.HandleDrift)
	}
}

// NewRouter builds the kodiak HTTP router with middleware and routes
// applied. Requests are traced through otelgin under the "kodiak"
// service name; logging stays structured through the given logger
// rather than gin's console writer.
func NewRouter(svc *kodiak.Service, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("kodiak"))

	RegisterRoutes(router, NewHandlers(svc, log))
	return router
}
