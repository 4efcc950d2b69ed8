package puzzle_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapSuccess(t *testing.T) {
	var got SwapRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SwapEndpoint, r.URL.Path)
		assert.Equal(t, JSONContentType, r.Header.Get(ContentTypeHeader))
		assert.Equal(t, "move-1", r.Header.Get(RequestIDHeader))
		assert.Equal(t, "session=abc", r.Header.Get(CookieHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set(ContentTypeHeader, JSONContentType)
		_, _ = w.Write([]byte(`{"board":[1,2,3],"turns":4,"limit":25,"solved":false,"passed":false,"locked":true,"next":"/games?level=2"}`))
	}))
	defer srv.Close()

	client := NewPuzzleClient(srv.URL, "session=abc")
	resp, err := client.Swap(context.Background(), SwapRequest{A: 5, B: 24}, "move-1")
	require.NoError(t, err)

	assert.Equal(t, SwapRequest{A: 5, B: 24}, got)
	assert.Equal(t, []int{1, 2, 3}, resp.Board)
	assert.Equal(t, 4, resp.Turns)
	assert.Equal(t, 25, resp.Limit)
	assert.True(t, resp.Locked)
	assert.False(t, resp.Passed)
	assert.Equal(t, "/games?level=2", resp.Next)
}

func TestSwapRejected(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"with message", http.StatusBadRequest, `{"error":"invalid move"}`, "invalid move"},
		{"empty object", http.StatusBadRequest, `{}`, ""},
		{"not json", http.StatusInternalServerError, `boom`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewPuzzleClient(srv.URL, "").Swap(context.Background(), SwapRequest{A: 0, B: 1}, "")
			require.Error(t, err)

			var swapErr *SwapError
			require.True(t, errors.As(err, &swapErr))
			assert.Equal(t, tc.status, swapErr.StatusCode)
			assert.Equal(t, tc.message, swapErr.Message)
		})
	}
}

func TestSwapMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewPuzzleClient(srv.URL, "").Swap(context.Background(), SwapRequest{A: 0, B: 1}, "")
	require.Error(t, err)

	var swapErr *SwapError
	assert.False(t, errors.As(err, &swapErr))
}

func TestSwapTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewPuzzleClient(url, "").Swap(context.Background(), SwapRequest{A: 0, B: 1}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit swap")
}
