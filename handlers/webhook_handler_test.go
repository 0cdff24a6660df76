package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

var webhookKey = []byte("0123456789abcdef0123456789abcdef")

func webhookSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(webhookKey)
}

func clerkPayload(eventType, clerkID string) []byte {
	switch eventType {
	case "user.deleted":
		return []byte(fmt.Sprintf(`{"type":"user.deleted","object":"event","data":{"id":%q,"deleted":true}}`, clerkID))
	default:
		return []byte(fmt.Sprintf(`{
			"type": %q,
			"object": "event",
			"data": {
				"id": %q,
				"username": "",
				"first_name": "Test",
				"last_name": "User",
				"image_url": "https://img.example.com/u.png",
				"primary_email_address_id": "idn_2",
				"email_addresses": [
					{"id": "idn_1", "email_address": "old@example.com"},
					{"id": "idn_2", "email_address": "test@example.com"}
				]
			}
		}`, eventType, clerkID))
	}
}

func signedRequest(t *testing.T, body []byte, sent time.Time, secret string) *http.Request {
	t.Helper()
	wh, err := svix.NewWebhook(secret)
	require.NoError(t, err)
	id := "msg_test"
	sig, err := wh.Sign(id, sent, body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", strconv.FormatInt(sent.Unix(), 10))
	req.Header.Set("svix-signature", "v1,bogus "+sig)
	return req
}

func newWebhook(t *testing.T, s *testServer, secret string) *WebhookHandler {
	t.Helper()
	h, err := NewWebhookHandler(s.users, secret, zap.NewNop())
	require.NoError(t, err)
	return h
}

func TestWebhookProvisionsUser(t *testing.T) {
	s := newTestServer(t)
	h := newWebhook(t, s, "")

	deliver := func(body []byte) int {
		rr := httptest.NewRecorder()
		h.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body)))
		return rr.Code
	}

	require.Equal(t, http.StatusOK, deliver(clerkPayload("user.created", "user_hook")))
	u, err := s.users.GetUserByClerkID(context.Background(), "user_hook")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, "TestUser", u.Username)
	assert.Equal(t, 7, s.store.Snapshot().DimensionValues)

	// redelivery is acknowledged without a second row
	assert.Equal(t, http.StatusOK, deliver(clerkPayload("user.created", "user_hook")))
	assert.Equal(t, 1, s.store.Snapshot().Users)

	assert.Equal(t, http.StatusOK, deliver(clerkPayload("user.updated", "user_hook")))
	assert.Equal(t, http.StatusOK, deliver([]byte(`{"type":"session.created","data":{}}`)))

	assert.Equal(t, http.StatusOK, deliver(clerkPayload("user.deleted", "user_hook")))
	assert.Equal(t, 0, s.store.Snapshot().Users)
	assert.Equal(t, http.StatusOK, deliver(clerkPayload("user.deleted", "user_hook")))

	assert.Equal(t, http.StatusNotFound, deliver(clerkPayload("user.updated", "user_gone")))
	assert.Equal(t, http.StatusBadRequest, deliver([]byte(`not json`)))
}

func TestWebhookSignature(t *testing.T) {
	s := newTestServer(t)
	h := newWebhook(t, s, webhookSecret())
	now := time.Now()
	otherSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("another-key-another-key-another!!"))

	body := clerkPayload("user.created", "user_signed")

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"unsigned", httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body)), http.StatusUnauthorized},
		{"wrong key", signedRequest(t, body, now, otherSecret), http.StatusUnauthorized},
		{"stale", signedRequest(t, body, now.Add(-10*time.Minute), webhookSecret()), http.StatusUnauthorized},
		{"future", signedRequest(t, body, now.Add(10*time.Minute), webhookSecret()), http.StatusUnauthorized},
		{"valid", signedRequest(t, body, now.Add(-time.Minute), webhookSecret()), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.HandleClerkWebhook(rr, tt.req)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}

	assert.Equal(t, 1, s.store.Snapshot().Users)
}

func TestWebhookTamperedBody(t *testing.T) {
	s := newTestServer(t)
	h := newWebhook(t, s, webhookSecret())

	req := signedRequest(t, clerkPayload("user.created", "user_a"), time.Now(), webhookSecret())
	req.Body = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(clerkPayload("user.created", "user_b"))).Body

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 0, s.store.Snapshot().Users)
}

func TestNewWebhookHandlerRejectsBadSecret(t *testing.T) {
	_, err := NewWebhookHandler(nil, "whsec_***not base64***", zap.NewNop())
	assert.Error(t, err)
}
