// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.astrophena.name/base/testutil"
)

func testClient(m *http.ServeMux, token string) *Client {
	return &Client{Token: token, HTTPClient: testutil.MockHTTPClient(m)}
}

func TestGet(t *testing.T) {
	t.Parallel()

	m := http.NewServeMux()
	m.HandleFunc("GET api.github.com/gists/test", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("Authorization"), "Bearer token")
		testutil.AssertEqual(t, r.Header.Get("Accept"), "application/vnd.github+json")
		json.NewEncoder(w).Encode(&Gist{
			Files: map[string]File{
				"files.json": {Content: "{}\n"},
			},
		})
	})

	g, err := testClient(m, "token").Get(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(g.Files), 1)
	testutil.AssertEqual(t, g.Files["files.json"].Content, "{}\n")
}

func TestGetWithoutToken(t *testing.T) {
	t.Parallel()

	m := http.NewServeMux()
	m.HandleFunc("GET api.github.com/gists/test", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(&Gist{Files: map[string]File{}})
	})

	if _, err := testClient(m, "").Get(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	var patched *Gist
	m := http.NewServeMux()
	m.HandleFunc("PATCH api.github.com/gists/test", func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		patched = testutil.UnmarshalJSON[*Gist](t, b)
		json.NewEncoder(w).Encode(patched)
	})

	g, err := testClient(m, "token").Update(context.Background(), "test", &Gist{
		Files: map[string]File{
			"aliases.json": {Content: `{"s1": ["ep"]}`},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, patched.Files["aliases.json"].Content, `{"s1": ["ep"]}`)
	testutil.AssertEqual(t, g.Files, patched.Files)
}

func TestGetError(t *testing.T) {
	t.Parallel()

	m := http.NewServeMux()
	m.HandleFunc("GET api.github.com/gists/test", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	_, err := testClient(m, "token").Get(context.Background(), "test")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error %q doesn't mention status code", err)
	}
}
