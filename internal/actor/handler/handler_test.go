package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echo struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []echo
	err  error
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.sent = append(f.sent, echo{chatID, text})
	return f.err
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestEchoesTrimmedText(t *testing.T) {
	primary := &fakeSender{}
	h := NewHandler(primary, nil, 42, zap.NewNop())

	rec := post(h, `{"update_id":1,"message":{"message_id":3,"chat":{"id":99},"text":"  /note buy milk \n"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, primary.sent, 1)
	assert.Equal(t, echo{42, "/note buy milk"}, primary.sent[0])
}

func TestChannelSelectsBot(t *testing.T) {
	primary, pyas2 := &fakeSender{}, &fakeSender{}
	h := NewHandler(primary, map[string]Sender{ChannelPyas2: pyas2}, 42, zap.NewNop())

	post(h, `{"channel":"pyas2","message":{"message_id":3,"chat":{"id":99},"text":"/ping"}}`)
	post(h, `{"channel":"other","message":{"message_id":4,"chat":{"id":99},"text":"/pong"}}`)

	assert.Equal(t, []echo{{42, "/ping"}}, pyas2.sent)
	assert.Equal(t, []echo{{42, "/pong"}}, primary.sent)
}

func TestMissingMessageIsAcknowledged(t *testing.T) {
	primary := &fakeSender{}
	h := NewHandler(primary, nil, 42, zap.NewNop())

	assert.Equal(t, http.StatusOK, post(h, `{"update_id":1}`).Code)
	assert.Equal(t, http.StatusOK, post(h, `{"update_id":2,"message":{"message_id":1,"chat":{"id":1}}}`).Code)
	assert.Empty(t, primary.sent)
}

func TestInvalidJSON(t *testing.T) {
	h := NewHandler(&fakeSender{}, nil, 42, zap.NewNop())
	assert.Equal(t, http.StatusBadRequest, post(h, `not json`).Code)
}

func TestNotConfigured(t *testing.T) {
	h := NewHandler(nil, nil, 42, zap.NewNop())
	assert.Equal(t, http.StatusInternalServerError, post(h, `{"message":{"text":"/x"}}`).Code)

	h = NewHandler(&fakeSender{}, nil, 0, zap.NewNop())
	assert.Equal(t, http.StatusInternalServerError, post(h, `{"message":{"text":"/x"}}`).Code)
}

func TestSendFailureStillOK(t *testing.T) {
	h := NewHandler(&fakeSender{err: errors.New("telegram down")}, nil, 42, zap.NewNop())
	assert.Equal(t, http.StatusOK, post(h, `{"message":{"message_id":1,"chat":{"id":1},"text":"/x"}}`).Code)
}

func TestOversizedPayload(t *testing.T) {
	primary := &fakeSender{}
	h := NewHandler(primary, nil, 42, zap.NewNop())

	body := `{"message":{"message_id":1,"chat":{"id":1},"text":"` + strings.Repeat("x", maxPayloadSize) + `"}}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(h, body).Code)
	assert.Empty(t, primary.sent)
}
