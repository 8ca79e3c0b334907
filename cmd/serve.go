// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	guardctx "github.com/foundriesio/route-guard/context"
	"github.com/foundriesio/route-guard/server"
	"github.com/foundriesio/route-guard/server/api"
)

type ServeCmd struct {
	Port   uint16 `default:"8080" help:"Port for the REST API"`
	Config string `help:"Optional TOML file with server settings"`

	quit      chan os.Signal
	apiServer *echo.Echo
}

type serverConfig struct {
	SessionHours           int     `toml:"session_hours"`
	LoginAttemptsPerSecond float64 `toml:"login_attempts_per_second"`
}

// loadServerConfig reads the optional TOML settings file. Zero values are
// filled with defaults further down the stack.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := serverConfig{}
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to read server config: %w", err)
	}
	return cfg, nil
}

func (c *ServeCmd) Run(args CommonArgs) error {
	logger := slog.Default()

	cfg, err := loadServerConfig(c.Config)
	if err != nil {
		return err
	}

	userStorage, _, err := args.openStorage()
	if err != nil {
		return err
	}
	userStorage.StartGc()
	defer userStorage.StopGc()

	// setup channel to gracefully terminate server
	c.quit = make(chan os.Signal, 1)
	signal.Notify(c.quit, syscall.SIGTERM)
	serveErr := make(chan error)

	c.apiServer = server.NewEchoServer("rest-api", logger)
	apiCfg := api.Config{
		Users:                  userStorage,
		SessionTTL:             time.Duration(cfg.SessionHours) * time.Hour,
		LoginAttemptsPerSecond: cfg.LoginAttemptsPerSecond,
	}
	if err := api.RegisterHandlers(c.apiServer, apiCfg); err != nil {
		return err
	}

	ctx := guardctx.CtxWithLog(context.Background(), logger)
	srv := server.NewServer(ctx, c.apiServer, c.Port)
	srv.Start(serveErr)

	select {
	case err := <-serveErr:
		return err
	case <-c.quit:
		if err := srv.Shutdown(1 * time.Minute); err != nil {
			log.Error("Unexpected error stopping rest-api server", "error", err)
		}
	}

	return nil
}
