package notify

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

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"oversized message", &APIError{StatusCode: http.StatusBadRequest, Description: "Bad Request: message is too long"}, true},
		{"bad chat", &APIError{StatusCode: http.StatusBadRequest, Description: "Bad Request: chat not found"}, false},
		{"forbidden", &APIError{StatusCode: http.StatusForbidden, Description: "bot was blocked by the user"}, false},
		{"network error", errors.New("dial tcp: connection refused"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "token123")
	err := tg.Send(context.Background(), "42", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"description":"Too Many Requests: retry after 5"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "token123")
	err := tg.Send(context.Background(), "42", "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Description, "Too Many Requests")
	assert.True(t, Retryable(err))
}

func TestPoll(t *testing.T) {
	var gotOffset float64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken123/getUpdates", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotOffset = payload["offset"].(float64)

		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":100,"message":{"text":"subscribe","chat":{"id":42}}},
			{"update_id":101,"message":{"text":"","chat":{"id":43}}},
			{"update_id":102},
			{"update_id":103,"message":{"text":"status","chat":{"id":44}}}
		]}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "token123")
	updates, err := tg.Poll(context.Background(), 100, 50)
	require.NoError(t, err)

	assert.Equal(t, float64(100), gotOffset)

	// Empty-text and message-less updates are skipped.
	require.Len(t, updates, 2)
	assert.Equal(t, int64(100), updates[0].ID)
	assert.Equal(t, "42", updates[0].ChatID)
	assert.Equal(t, "subscribe", updates[0].Text)
	assert.Equal(t, int64(103), updates[1].ID)
}

func TestPollRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "bad")
	_, err := tg.Poll(context.Background(), 0, 50)
	assert.Error(t, err)
}
