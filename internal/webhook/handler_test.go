package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/line-replybot/internal/bot"
	"github.com/garyellow/line-replybot/internal/catalog"
	"github.com/garyellow/line-replybot/internal/config"
	"github.com/garyellow/line-replybot/internal/logger"
	"github.com/garyellow/line-replybot/internal/metrics"
)

const testSecret = "test-channel-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedRouter answers by message text and panics on "panic".
type scriptedRouter struct{}

func (scriptedRouter) Handle(_ context.Context, event webhook.EventInterface) bot.Result {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return bot.Result{EventType: bot.EventType(event), Status: bot.StatusIgnored}
	}
	text, _ := e.Message.(webhook.TextMessageContent)
	if text.Text == "panic" {
		panic("scripted failure")
	}
	return bot.Result{EventType: "message", Status: bot.StatusReplied, Messages: 1}
}

type recordingMessenger struct {
	mu      sync.Mutex
	replies []*messaging_api.ReplyMessageRequest
}

func (m *recordingMessenger) ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, req)
	return &messaging_api.ReplyMessageResponse{}, nil
}

func (m *recordingMessenger) PushMessage(*messaging_api.PushMessageRequest, string) (*messaging_api.PushMessageResponse, error) {
	return &messaging_api.PushMessageResponse{}, nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func textEventJSON(token, text string) string {
	return fmt.Sprintf(`{
		"type": "message",
		"mode": "active",
		"timestamp": 1462629479859,
		"webhookEventId": "01FZ74A0TDDPYRVKNK77XKC3ZR",
		"deliveryContext": {"isRedelivery": false},
		"source": {"type": "user", "userId": "U4af4980629"},
		"replyToken": %q,
		"message": {"id": "444573844083572737", "type": "text", "quoteToken": "q", "text": %q}
	}`, token, text)
}

func postbackEventJSON(token, data string) string {
	return fmt.Sprintf(`{
		"type": "postback",
		"mode": "active",
		"timestamp": 1462629479859,
		"webhookEventId": "01FZ74A0TDDPYRVKNK77XKC3ZS",
		"deliveryContext": {"isRedelivery": true},
		"source": {"type": "group", "groupId": "Ca56f94637c", "userId": "U4af4980629"},
		"replyToken": %q,
		"postback": {"data": %q}
	}`, token, data)
}

func fileEventJSON(token string) string {
	return fmt.Sprintf(`{
		"type": "message",
		"mode": "active",
		"timestamp": 1462629479859,
		"webhookEventId": "01FZ74A0TDDPYRVKNK77XKC3ZT",
		"deliveryContext": {"isRedelivery": false},
		"source": {"type": "user", "userId": "U4af4980629"},
		"replyToken": %q,
		"message": {"id": "444573844083572738", "type": "file", "fileName": "report.pdf", "fileSize": 2138}
	}`, token)
}

func callbackBody(events ...string) []byte {
	return []byte(`{"destination": "xxxxxxxxxx", "events": [` + strings.Join(events, ",") + `]}`)
}

func newTestHandler(t *testing.T, router EventHandler, botCfg config.BotConfig) (*Handler, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		Router:        router,
		Logger:        logger.NewWithWriter("debug", io.Discard),
		Metrics:       m,
		BotConfig:     botCfg,
	})
	require.NoError(t, err)
	return h, m
}

func serve(h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/callback", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) []bot.Result {
	t.Helper()
	var results []bot.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results), "body: %s", w.Body.String())
	return results
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	log := logger.NewWithWriter("info", io.Discard)

	_, err := NewHandler(HandlerConfig{Router: scriptedRouter{}, Logger: log})
	assert.Error(t, err)
	_, err = NewHandler(HandlerConfig{ChannelSecret: testSecret, Logger: log})
	assert.Error(t, err)
	_, err = NewHandler(HandlerConfig{ChannelSecret: testSecret, Router: scriptedRouter{}})
	assert.Error(t, err)
}

func TestHandle_InvalidSignature(t *testing.T) {
	h, m := newTestHandler(t, scriptedRouter{}, config.DefaultBotConfig())
	body := callbackBody(textEventJSON("token-1", "hello"))

	for name, signature := range map[string]string{
		"missing": "",
		"wrong":   base64.StdEncoding.EncodeToString([]byte("not-a-valid-mac")),
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(h, body, signature)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Body.String())
		})
	}
	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("invalid_signature")), 0)
}

func TestHandle_MalformedBody(t *testing.T) {
	h, m := newTestHandler(t, scriptedRouter{}, config.DefaultBotConfig())
	body := []byte(`{"destination": "x", "events": [`)

	w := serve(h, body, sign(body))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("malformed_body")), 0)
}

func TestHandle_EmptyBatch(t *testing.T) {
	h, _ := newTestHandler(t, scriptedRouter{}, config.DefaultBotConfig())
	body := callbackBody()

	w := serve(h, body, sign(body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeResults(t, w))
}

func TestHandle_PanicIsolatedToOneEvent(t *testing.T) {
	h, _ := newTestHandler(t, scriptedRouter{}, config.DefaultBotConfig())
	body := callbackBody(
		textEventJSON("token-1", "hello"),
		textEventJSON("token-2", "panic"),
		textEventJSON("token-3", "world"),
	)

	w := serve(h, body, sign(body))

	require.Equal(t, http.StatusOK, w.Code)
	results := decodeResults(t, w)
	require.Len(t, results, 3)
	assert.Equal(t, bot.StatusReplied, results[0].Status)
	assert.Equal(t, bot.StatusFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "scripted failure")
	assert.Equal(t, bot.StatusReplied, results[2].Status)
}

func TestHandle_EventLimit(t *testing.T) {
	cfg := config.DefaultBotConfig()
	cfg.MaxEventsPerWebhook = 2
	h, _ := newTestHandler(t, scriptedRouter{}, cfg)
	body := callbackBody(
		textEventJSON("token-1", "a"),
		textEventJSON("token-2", "b"),
		textEventJSON("token-3", "c"),
	)

	w := serve(h, body, sign(body))

	require.Equal(t, http.StatusOK, w.Code)
	results := decodeResults(t, w)
	require.Len(t, results, 3)
	assert.Equal(t, bot.StatusReplied, results[0].Status)
	assert.Equal(t, bot.StatusReplied, results[1].Status)
	assert.Equal(t, bot.StatusIgnored, results[2].Status)
	assert.Contains(t, results[2].Error, "event limit exceeded")
}

func TestHandle_EndToEnd(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	messenger := &recordingMessenger{}
	router, err := bot.NewRouter(bot.RouterConfig{
		Messenger: messenger,
		Selector:  catalog.NewSelector(c),
		Logger:    logger.NewWithWriter("debug", io.Discard),
		BotConfig: config.DefaultBotConfig(),
	})
	require.NoError(t, err)

	h, m := newTestHandler(t, router, config.DefaultBotConfig())
	body := callbackBody(
		textEventJSON("nHuyWiB7yP5Zw52FIkcQobQuGDXCTA", "Opening hours"),
		postbackEventJSON("b60d432864f44d079f6d8efe86cf404b", "action=buy&itemid=123"),
		textEventJSON("00000000000000000000000000000000", "hello"),
		fileEventJSON("5c8bd26b3a6e4d0a9c2a1f0e7d6b5a49"),
		`{"type": "follow", "mode": "active", "timestamp": 1, "source": {"type": "user", "userId": "U1"}, "replyToken": "r", "webhookEventId": "e", "deliveryContext": {"isRedelivery": false}, "follow": {"isUnblocked": false}}`,
	)

	w := serve(h, body, sign(body))

	require.Equal(t, http.StatusOK, w.Code)
	results := decodeResults(t, w)
	require.Len(t, results, 5)
	assert.Equal(t, bot.Result{EventType: "message", Status: bot.StatusReplied, Messages: 1}, results[0])
	assert.Equal(t, bot.Result{EventType: "postback", Status: bot.StatusReplied, Messages: 2}, results[1])
	assert.Equal(t, bot.Result{EventType: "message", Status: bot.StatusSkipped}, results[2])
	assert.Equal(t, "message", results[3].EventType)
	assert.Equal(t, bot.StatusFailed, results[3].Status)
	assert.Contains(t, results[3].Error, `"file"`)
	assert.Equal(t, bot.Result{EventType: "follow", Status: bot.StatusIgnored}, results[4])

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	require.Len(t, messenger.replies, 2)
	tokens := []string{messenger.replies[0].ReplyToken, messenger.replies[1].ReplyToken}
	assert.ElementsMatch(t, []string{"nHuyWiB7yP5Zw52FIkcQobQuGDXCTA", "b60d432864f44d079f6d8efe86cf404b"}, tokens)

	assert.Equal(t, 1, testutil.CollectAndCount(m.WebhookBatchEvents))
}
