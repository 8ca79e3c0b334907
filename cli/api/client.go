// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package api is a thin HTTP client for the route-guard REST API. Requests
// authenticate with the context's API token sent in the auth-token header.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foundriesio/route-guard/cli/config"
	"github.com/foundriesio/route-guard/guard"
)

type contextKeyType string

// ContextKey is where the client is stashed on the cobra command context.
const ContextKey contextKeyType = "api-client"

type Api struct {
	ctx    config.Context
	client *http.Client
}

// CtxGetApi pulls the client set up by the root command's pre-run hook.
func CtxGetApi(ctx context.Context) *Api {
	return ctx.Value(ContextKey).(*Api)
}

func NewClient(ctx config.Context) *Api {
	return &Api{
		ctx:    ctx,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Message string `json:"error"`
}

func (a *Api) Get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, a.ctx.URL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(guard.HeaderAuthToken, a.ctx.Token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
