package errors_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraerrors "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantNil bool
		wantMsg string
	}{
		{name: "success", status: http.StatusOK, body: `{}`, wantNil: true},
		{name: "error field", status: http.StatusNotFound, body: `{"error":"model not found"}`, wantMsg: "model not found"},
		{name: "message field", status: http.StatusBadRequest, body: `{"message":"bad input"}`, wantMsg: "bad input"},
		{name: "plain text", status: http.StatusBadGateway, body: " upstream down \n", wantMsg: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := infraerrors.ParseHTTPError(response(tt.status, tt.body))
			if tt.wantNil {
				require.NoError(t, err)
				return
			}
			var httpErr *infraerrors.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestGetHTTPStatusCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("call: %w", &infraerrors.HTTPError{StatusCode: http.StatusTooManyRequests})
	code, ok := infraerrors.GetHTTPStatusCode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, wrapped.Error(), "Too Many Requests")

	_, ok = infraerrors.GetHTTPStatusCode(io.EOF)
	assert.False(t, ok)
}
