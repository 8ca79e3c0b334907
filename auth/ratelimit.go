// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewLoginRateLimiter throttles credential-guessing against the login
// endpoint. Denied attempts are additionally slowed down before the 429 goes
// out to make brute forcing less attractive.
func NewLoginRateLimiter(attemptsPerSecond float64) echo.MiddlewareFunc {
	if attemptsPerSecond <= 0 {
		attemptsPerSecond = 2
	}

	rlConfig := middleware.RateLimiterConfig{
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			time.Sleep(2 * time.Second)
			return middleware.DefaultRateLimiterConfig.DenyHandler(c, identifier, err)
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(attemptsPerSecond),
				ExpiresIn: 2 * time.Minute,
			},
		),
	}
	return middleware.RateLimiterWithConfig(rlConfig)
}
