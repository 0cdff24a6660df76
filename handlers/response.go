package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/types/user"
	"nafsAPI/middleware"
	"nafsAPI/services"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"reason":"failed to encode response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, reason string) {
	respondWithJSON(w, code, map[string]any{"success": false, "reason": reason})
}

// respondWithAppError maps an engine error onto its status code and reason.
func respondWithAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respondWithError(w, http.StatusGatewayTimeout, "request timed out")
		return
	}
	respondWithError(w, apperr.HTTPStatus(apperr.KindOf(err)), apperr.ReasonOf(err))
}

// decodeJSON reads a single JSON body and runs struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.ValidationFailed, "request body required")
		}
		return apperr.Wrap(apperr.ValidationFailed, err, fmt.Sprintf("invalid request body: %v", err))
	}
	if err := middleware.ValidateStruct(dst); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, err, middleware.ValidationReason(err))
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.ValidationFailed, "invalid %s", name)
	}
	return id, nil
}

// currentUser resolves the authenticated Clerk subject to the engine's user.
func currentUser(ctx context.Context, users *services.UserService) (*user.User, error) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		return nil, apperr.New(apperr.Unauthorized, "user not authenticated")
	}
	var u *user.User
	err := withRetry(ctx, func() error {
		var err error
		u, err = users.GetUserByClerkID(ctx, clerkID)
		return err
	})
	if apperr.KindOf(err) == apperr.NotFound {
		return nil, apperr.Wrap(apperr.Unauthorized, err, "user not provisioned")
	}
	return u, err
}
