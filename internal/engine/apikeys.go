package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"plurianual/internal/domain"
	"plurianual/internal/events"
	"plurianual/internal/repo"
)

const apiKeyPrefix = "ppa_"

// APIKeyResult carries the plain key. It is only available at creation.
type APIKeyResult struct {
	domain.APIKey
	Key string `json:"key"`
}

// CreateAPIKey issues a key that authenticates as owner on the HTTP API.
func (e Engine) CreateAPIKey(ctx context.Context, owner, name, actorID string) (APIKeyResult, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return APIKeyResult{}, invalid("actor_id", "is required")
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return APIKeyResult{}, fmt.Errorf("generate api key: %w", err)
	}
	plain := apiKeyPrefix + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   owner,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.timestamp(),
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertAPIKeyTx(ctx, tx, key); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.APIKeyCreated, "api_key", key.ID, actorID, events.EventPayload{"actor_id": owner, "name": key.Name})
	})
	if err != nil {
		return APIKeyResult{}, err
	}
	e.Log.Info("api key created", "api_key_id", key.ID, "owner", owner)
	return APIKeyResult{APIKey: key, Key: plain}, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, owner string) ([]domain.APIKey, error) {
	return e.Repo.ListAPIKeys(ctx, owner)
}

func (e Engine) RevokeAPIKey(ctx context.Context, id, actorID string) error {
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteAPIKeyTx(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.APIKeyRevoked, "api_key", id, actorID, nil)
	})
	if err != nil {
		return err
	}
	e.Log.Info("api key revoked", "api_key_id", id)
	return nil
}

// AuthenticateAPIKey resolves a plain key to its owner. Unknown keys return repo.ErrNotFound.
func (e Engine) AuthenticateAPIKey(ctx context.Context, plain string) (domain.APIKey, error) {
	if strings.TrimSpace(plain) == "" {
		return domain.APIKey{}, repo.ErrNotFound
	}
	return e.Repo.APIKeyByHash(ctx, repo.HashAPIKey(plain))
}
