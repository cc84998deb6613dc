/* Copyright (c) 2025 tea9296
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "errors"
    "log"
    "os"
    "strconv"
    "strings"
    "time"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    AzureBaseURL string
    Organization string
    Project      string
    Team         string

    HTTPTimeout    time.Duration
    MaxConcurrency int
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func Load() Config {
    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "Asia/Taipei"),
        HTTPAddr: getenv("HTTP_ADDR", ":8001"),

        AzureBaseURL: strings.TrimRight(getenv("AZURE_BASE_URL", "https://dev.azure.com"), "/"),
        Organization: strings.TrimSpace(getenv("AZURE_ORG", "")),
        Project:      strings.TrimSpace(getenv("AZURE_PROJECT", "")),
        Team:         strings.TrimSpace(getenv("AZURE_TEAM", "")),

        HTTPTimeout:    dur("HTTP_TIMEOUT", 15*time.Second),
        MaxConcurrency: atoi("MAX_CONCURRENCY", 8),
    }

    // team defaults to the project, matching Azure DevOps behavior
    if cfg.Team == "" { cfg.Team = cfg.Project }
    if cfg.MaxConcurrency <= 0 { cfg.MaxConcurrency = 8 }

    // set global timezone if available
    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg
}

func (c Config) Validate() error {
    if c.Organization == "" { return errors.New("config: AZURE_ORG is required") }
    if c.Project == "" { return errors.New("config: AZURE_PROJECT is required") }
    return nil
}
