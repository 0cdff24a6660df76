package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/types/clerk"
	"nafsAPI/internal/types/user"
	"nafsAPI/services"
)

type WebhookHandler struct {
	userService *services.UserService
	wh          *svix.Webhook
	log         *zap.Logger
}

// NewWebhookHandler accepts the Clerk signing secret in its whsec_ form.
// An empty secret disables verification.
func NewWebhookHandler(userService *services.UserService, secret string, log *zap.Logger) (*WebhookHandler, error) {
	h := &WebhookHandler{userService: userService, log: log}
	if secret == "" {
		log.Warn("CLERK_WEBHOOK_SECRET not set, skipping webhook signature verification")
		return h, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to load webhook secret: %w", err)
	}
	h.wh = wh
	return h, nil
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "error reading body")
		return
	}

	if err := h.verify(r.Header, body); err != nil {
		h.log.Warn("webhook_rejected", zap.Error(err))
		respondWithError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event clerk.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "error parsing webhook")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(ctx, event.Data)
	case "user.updated":
		err = h.handleUserUpdated(ctx, event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		h.log.Debug("webhook_ignored", zap.String("type", event.Type))
	}
	if err != nil {
		h.log.Error("webhook_failed", zap.String("type", event.Type), zap.Error(err))
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid user payload")
	}

	username := userData.Username
	if username == "" {
		username = userData.FirstName + userData.LastName
	}

	req := &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     userData.PrimaryEmail(),
		Username:  username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	}

	err := withRetry(ctx, func() error {
		_, err := h.userService.CreateUser(ctx, req)
		return err
	})
	// redelivery of an event we already applied
	if apperr.KindOf(err) == apperr.Conflict {
		return nil
	}
	return err
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid user payload")
	}

	req := &user.UpdateProfileRequest{
		Username:  userData.Username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	}

	return withRetry(ctx, func() error {
		_, err := h.userService.UpdateProfileByClerkID(ctx, userData.ID, req)
		return err
	})
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid user payload")
	}

	err := withRetry(ctx, func() error {
		return h.userService.DeleteUserByClerkID(ctx, userData.ID)
	})
	if apperr.KindOf(err) == apperr.NotFound {
		return nil
	}
	return err
}

func (h *WebhookHandler) verify(header http.Header, body []byte) error {
	if h.wh == nil {
		return nil
	}
	return h.wh.Verify(body, header)
}
