// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package guard

import "net/http"

const (
	HeaderAuthToken    = "auth-token"
	HeaderRefreshToken = "refresh-token"

	CookieAuthToken    = "authToken"
	CookieRefreshToken = "refreshToken"
)

// Credentials is the token pair extracted from one request. It is derived
// fresh per request and never cached or reused across requests.
type Credentials struct {
	AuthToken    string
	RefreshToken string
}

// ExtractCredentials pulls the token pair off the request. Each field
// independently prefers its header over its cookie; the two sources are never
// merged within a field. A field with neither source present is "".
func ExtractCredentials(r *http.Request) Credentials {
	return Credentials{
		AuthToken:    resolve(r, HeaderAuthToken, CookieAuthToken),
		RefreshToken: resolve(r, HeaderRefreshToken, CookieRefreshToken),
	}
}

func resolve(r *http.Request, header, cookie string) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}
