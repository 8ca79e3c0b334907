// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Created  int64  `json:"created"`
}

type UsersApi struct {
	api *Api
}

func (a *Api) Users() UsersApi {
	return UsersApi{
		api: a,
	}
}

// Whoami resolves the token's own user.
func (u UsersApi) Whoami() (*User, error) {
	var user User
	return &user, u.api.Get("/profile", &user)
}

// List returns every active user. Requires an admin token.
func (u UsersApi) List() ([]User, error) {
	var users []User
	return users, u.api.Get("/users", &users)
}
