package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/apperr"
)

type recorded struct {
	path string
	body map[string]any
}

func newTestServer(t *testing.T, reply func(method string) (int, string)) (*Client, func() []recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()

		method := r.URL.Path[len("/bot123:abc/"):]
		status, body := reply(method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "123:abc"), func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestClient_SendMessage(t *testing.T) {
	client, calls := newTestServer(t, func(string) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":77,"chat":{"id":5,"type":"private"},"date":1,"text":"hi"}}`
	})

	msg, err := client.SendMessage(context.Background(), SendMessageParams{
		ChatID:    5,
		Text:      "hi",
		ParseMode: ParseModeHTML,
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Back", CallbackData: "back_main"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), msg.MessageID)

	require.Len(t, calls(), 1)
	call := calls()[0]
	assert.Equal(t, "/bot123:abc/sendMessage", call.path)
	assert.Equal(t, float64(5), call.body["chat_id"])
	assert.Equal(t, "HTML", call.body["parse_mode"])
	assert.Contains(t, call.body, "reply_markup")
}

func TestClient_APIError(t *testing.T) {
	client, _ := newTestServer(t, func(string) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	})

	err := client.SetWebhook(context.Background(), WebhookParams{URL: "https://example.com/hook"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamUnavailable))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
}

func TestClient_WebhookLifecycle(t *testing.T) {
	client, calls := newTestServer(t, func(method string) (int, string) {
		switch method {
		case "getWebhookInfo":
			return http.StatusOK, `{"ok":true,"result":{"url":"https://example.com/hook","pending_update_count":3,"allowed_updates":["message","callback_query"]}}`
		case "getMe":
			return http.StatusOK, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Ahrie","username":"ahrie_bot"}}`
		default:
			return http.StatusOK, `{"ok":true,"result":true}`
		}
	})
	ctx := context.Background()

	require.NoError(t, client.SetWebhook(ctx, WebhookParams{
		URL:                "https://example.com/hook",
		SecretToken:        "s3cret",
		AllowedUpdates:     []string{"message", "callback_query"},
		DropPendingUpdates: true,
	}))
	assert.Equal(t, "s3cret", calls()[0].body["secret_token"])
	assert.Equal(t, true, calls()[0].body["drop_pending_updates"])

	info, err := client.GetWebhookInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.PendingUpdateCount)

	me, err := client.GetMe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ahrie_bot", me.Username)

	require.NoError(t, client.DeleteWebhook(ctx, true))
	require.NoError(t, client.AnswerCallbackQuery(ctx, "cb", ""))
	require.NoError(t, client.SendChatAction(ctx, 5, ActionTyping))
	assert.Equal(t, "typing", last(calls()).body["action"])
}

func TestClient_TransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "123:abc")
	err := client.DeleteWebhook(context.Background(), false)
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamUnavailable))
}

func last(calls []recorded) recorded {
	return calls[len(calls)-1]
}
