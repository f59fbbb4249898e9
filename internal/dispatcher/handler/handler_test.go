package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kiribu/actor-relay/internal/dispatcher/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRouter struct {
	raws    [][]byte
	updates []tgbotapi.Update
}

func (r *recordingRouter) Route(ctx context.Context, raw []byte, update tgbotapi.Update) router.Action {
	r.raws = append(r.raws, raw)
	r.updates = append(r.updates, update)
	return router.ActionForward
}

func serve(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRoutesAndAcknowledges(t *testing.T) {
	rr := &recordingRouter{}
	body := `{"update_id":9,"message":{"message_id":1,"chat":{"id":42},"text":"/money 5"}}`

	rec := serve(t, NewHandler(rr, zap.NewNop()), body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	require.Len(t, rr.updates, 1)
	assert.Equal(t, 9, rr.updates[0].UpdateID)
	assert.Equal(t, body, string(rr.raws[0]))
}

func TestWebhookMalformedJSON(t *testing.T) {
	rr := &recordingRouter{}

	rec := serve(t, NewHandler(rr, zap.NewNop()), `{"update_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rr.updates)
}

func TestWebhookEmptyBody(t *testing.T) {
	rr := &recordingRouter{}

	rec := serve(t, NewHandler(rr, zap.NewNop()), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rr.updates)
}

func TestWebhookNotConfigured(t *testing.T) {
	rec := serve(t, NewHandler(nil, zap.NewNop()), `{"update_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookOnlyAcceptsPost(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(&recordingRouter{}, zap.NewNop()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	rr := &recordingRouter{}
	body := `{"update_id":1,"message":{"text":"` + strings.Repeat("x", maxUpdateSize) + `"}}`

	rec := serve(t, NewHandler(rr, zap.NewNop()), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, rr.updates)
}
