// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package guard

// AccessPublic marks a route that is reachable without authentication even
// though its access level was declared explicitly.
const AccessPublic = "public"

// Route describes the access requirement of a single endpoint. An empty
// AccessLevel means the route never declared one; both that and AccessPublic
// let requests through without an identity lookup. Any other non-empty value
// requires authentication. The guard does not interpret the value beyond
// that — role enforcement is a downstream concern.
type Route struct {
	AccessLevel string
}

// Restricted reports whether requests to the route must be authenticated.
func (r Route) Restricted() bool {
	return r.AccessLevel != "" && r.AccessLevel != AccessPublic
}
