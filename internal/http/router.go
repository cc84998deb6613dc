/* Copyright (c) 2025 tea9296
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/tea9296/azure-devops-read-api/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context){
        reqID := c.GetHeader("X-Request-ID")
        if reqID == "" { reqID = uuid.NewString() }
        c.Header("X-Request-ID", reqID)
        c.Next()
        log.Info().Str("req_id", reqID).Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/", h.Root)
    r.GET("/health", h.Health)
    r.GET("/sprints", h.Sprints)
    r.GET("/work-items", h.WorkItems)
    r.GET("/work-items/summary", h.WorkItemsSummary)

    return r
}
