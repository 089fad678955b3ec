package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

// upstreamErrorBody matches the error shapes returned by the external APIs
// this app talks to: the Anthropic API ({"error":{"type","message"}}) and the
// Shopify Admin API ({"errors": "..."} or {"errors":[{"message": "..."}]}).
type upstreamErrorBody struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	Errors json.RawMessage `json:"errors"`
}

// ParseResponseError reads the body of a non-2xx HTTP response from an
// external API and translates it into an AppError. Structured error messages
// are preserved when the body matches a known shape; otherwise a snippet of
// the raw body is included.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return apperrors.Upstream(upstream,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	if message := extractMessage(bodyBytes); message != "" {
		return mapUpstreamError(resp.StatusCode, message, upstream)
	}

	// Unstructured error body.
	return mapUpstreamError(resp.StatusCode, snippet(bodyBytes), upstream)
}

// extractMessage pulls a human-readable message out of a structured error body.
func extractMessage(body []byte) string {
	var parsed upstreamErrorBody
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}

	if parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}

	if len(parsed.Errors) > 0 {
		// "errors" may be a bare string or a list of {message} objects.
		var s string
		if json.Unmarshal(parsed.Errors, &s) == nil {
			return s
		}
		var list []struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Errors, &list) == nil && len(list) > 0 {
			return list[0].Message
		}
	}

	return ""
}

// mapUpstreamError translates an external API's status code into an AppError
// that preserves the error semantics.
func mapUpstreamError(status int, message, upstream string) error {
	cause := fmt.Errorf("status %d: %s", status, message)

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Unauthorized(fmt.Sprintf("%s: %s", upstream, message))
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusTooManyRequests:
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s is throttling requests", upstream))
	default:
		return apperrors.Upstream(upstream, cause)
	}
}

// snippet truncates a raw body for inclusion in an error message.
func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
