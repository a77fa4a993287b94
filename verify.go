// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.astrophena.name/base/request"
	"go.astrophena.name/base/version"
)

// errVerifyUnavailable means the verification service couldn't be reached or
// answered with an error. It is deliberately distinct from a negative
// verification: the user should retry later, not fetch a new link.
var errVerifyUnavailable = errors.New("verification service unavailable")

type verifyResult struct {
	Valid bool   `json:"valid"`
	Alias string `json:"alias"`
	File  string `json:"file"`
}

// verifyToken exchanges an access token for a resolved alias or file name.
// The call is bounded by verifyTimeout; expiry counts as unavailability.
func (e *engine) verifyToken(ctx context.Context, token string, userID int64) (verifyResult, error) {
	q := url.Values{
		"token":   {token},
		"user_id": {strconv.FormatInt(userID, 10)},
	}
	res, err := request.Make[verifyResult](ctx, request.Params{
		Method: http.MethodGet,
		URL:    e.verifyURL + "/tokens/verify?" + q.Encode(),
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: e.verifyc,
		Scrubber:   e.scrubber,
	})
	if err != nil {
		return verifyResult{}, fmt.Errorf("%w: %v", errVerifyUnavailable, err)
	}
	return res, nil
}
