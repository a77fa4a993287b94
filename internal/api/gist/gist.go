// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gist provides a minimal client for the GitHub Gist API, just
// enough to use a single gist as a remote document store.
package gist

import (
	"context"
	"net/http"
	"strings"

	"go.astrophena.name/base/request"
)

const ghAPI = "https://api.github.com"

// Client is a GitHub Gist API client.
type Client struct {
	// Token is the GitHub access token used for authentication. Reading a
	// public gist works without it.
	Token string
	// HTTPClient is an optional HTTP client to use for requests. If nil,
	// request.DefaultClient is used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that removes secrets from
	// error messages.
	Scrubber *strings.Replacer
}

// Gist is a single gist: a set of named files.
type Gist struct {
	Files map[string]File `json:"files"`
}

// File is a file within a gist.
type File struct {
	Content string `json:"content"`
}

// Get retrieves the gist with the given ID.
func (c *Client) Get(ctx context.Context, id string) (*Gist, error) {
	return c.do(ctx, http.MethodGet, id, nil)
}

// Update patches the gist with the given ID. Files absent from g are left
// untouched.
func (c *Client) Update(ctx context.Context, id string, g *Gist) (*Gist, error) {
	return c.do(ctx, http.MethodPatch, id, g)
}

func (c *Client) do(ctx context.Context, method, id string, body *Gist) (*Gist, error) {
	p := request.Params{
		Method: method,
		URL:    ghAPI + "/gists/" + id,
		Headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
		Body:       body,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	}
	if c.Token != "" {
		p.Headers["Authorization"] = "Bearer " + c.Token
	}
	return request.Make[*Gist](ctx, p)
}
