/* Copyright (c) 2025 tea9296
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/tea9296/azure-devops-read-api/internal/adapters/azdo"
    "github.com/tea9296/azure-devops-read-api/internal/config"
    httpx "github.com/tea9296/azure-devops-read-api/internal/http"
    "github.com/tea9296/azure-devops-read-api/internal/logger"
    "github.com/tea9296/azure-devops-read-api/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    if err := cfg.Validate(); err != nil {
        log.Fatal().Err(err).Msg("invalid configuration")
    }

    // Adapters
    client := azdo.NewClient(cfg, log)

    // Services
    svc := services.NewService(cfg, log, client)

    // HTTP server (Gin)
    router := httpx.NewRouter(cfg, log, svc)

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()
    log.Info().Str("addr", cfg.HTTPAddr).Str("org", cfg.Organization).Str("project", cfg.Project).Msg("listening")

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
