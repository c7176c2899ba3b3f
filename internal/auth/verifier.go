// Package auth verifies bearer credentials presented at the HTTP boundary.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// Verifier resolves a bearer token to the calling user.
type Verifier interface {
	Verify(ctx context.Context, token string) (entity.User, error)
}

// Unauthorized is returned for missing, unknown or rejected tokens.
func Unauthorized(message string) error {
	return common.NewAppError(constants.ErrAuth, message, common.ErrUnauthorized)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// NewVerifier picks the remote verifier when a user endpoint is configured, otherwise the
// static token table.
func NewVerifier(cfg common.AuthConfig, logger *slog.Logger) (Verifier, error) {
	if cfg.UserURL != "" {
		return NewRemoteVerifier(cfg.UserURL, cfg.APIKey, nil, logger), nil
	}
	if len(cfg.Tokens) > 0 {
		return NewStaticVerifier(cfg.Tokens), nil
	}
	return nil, common.NewAppError(constants.ErrConfig, "AUTH_USER_URL or AUTH_TOKENS is required", common.ErrInvalidInput)
}

// StaticVerifier checks tokens against a fixed token-to-user table.
type StaticVerifier struct {
	tokens map[string]string
}

func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticVerifier{tokens: cp}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (entity.User, error) {
	if token == "" {
		return entity.User{}, Unauthorized("missing bearer token")
	}
	for known, user := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return entity.User{ID: user}, nil
		}
	}
	return entity.User{}, Unauthorized("invalid bearer token")
}

// RemoteVerifier asks an identity endpoint who owns the token. The endpoint answers a GET
// carrying the caller's bearer token with {"id": ..., "email": ...}.
type RemoteVerifier struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

func NewRemoteVerifier(url, apiKey string, client *http.Client, logger *slog.Logger) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{url: url, apiKey: apiKey, client: client, logger: common.LoggerOr(logger)}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (entity.User, error) {
	if token == "" {
		return entity.User{}, Unauthorized("missing bearer token")
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if v.apiKey != "" {
		headers["apikey"] = v.apiKey
	}
	body, status, err := common.Do(ctx, v.client, http.MethodGet, v.url, nil, headers, v.logger)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return entity.User{}, Unauthorized("invalid bearer token")
	case status == 0:
		v.logger.Warn("auth.verify.transport_failed", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return entity.User{}, common.NewAppError(constants.ErrNetwork, "identity service unreachable", err)
	case status != http.StatusOK || err != nil:
		v.logger.Warn("auth.verify.unexpected_status", "request_id", common.RequestIDFromContext(ctx), "status", status)
		return entity.User{}, common.NewAppError(constants.ErrNetwork,
			fmt.Sprintf("identity service returned %d", status), err)
	}

	var user entity.User
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return entity.User{}, Unauthorized("identity service returned no user")
	}
	return user, nil
}
