package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"plurianual/internal/domain"
)

var apiKeyColumns = []string{"id", "actor_id", "COALESCE(name,'')", "key_hash", "created_at"}

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// InsertAPIKeyTx stores a hashed API key. KeyHash must already contain the hashed value.
func (r Repo) InsertAPIKeyTx(ctx context.Context, tx *sql.Tx, key domain.APIKey) error {
	switch {
	case key.ID == "":
		return errors.New("id required")
	case key.ActorID == "":
		return errors.New("actor_id required")
	case key.KeyHash == "":
		return errors.New("key_hash required")
	}
	var name any
	if key.Name != "" {
		name = key.Name
	}
	ins := builder.Insert("api_keys").
		Columns("id", "actor_id", "name", "key_hash", "created_at").
		Values(key.ID, key.ActorID, name, key.KeyHash, key.CreatedAt)
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// APIKeyByHash returns the key whose hash matches.
func (r Repo) APIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	rows, err := query(ctx, r.DB, builder.Select(apiKeyColumns...).From("api_keys").Where(squirrel.Eq{"key_hash": hash}).Limit(1))
	if err != nil {
		return domain.APIKey{}, err
	}
	keys, err := scanAPIKeys(rows)
	if err != nil {
		return domain.APIKey{}, err
	}
	if len(keys) == 0 {
		return domain.APIKey{}, ErrNotFound
	}
	return keys[0], nil
}

// ListAPIKeys returns API keys, newest first, optionally filtered by actor.
func (r Repo) ListAPIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	sel := builder.Select(apiKeyColumns...).From("api_keys").OrderBy("created_at DESC", "rowid DESC")
	if actorID != "" {
		sel = sel.Where(squirrel.Eq{"actor_id": actorID})
	}
	rows, err := query(ctx, r.DB, sel)
	if err != nil {
		return nil, err
	}
	return scanAPIKeys(rows)
}

func (r Repo) DeleteAPIKeyTx(ctx context.Context, tx *sql.Tx, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	res, err := exec(ctx, tx, builder.Delete("api_keys").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func scanAPIKeys(rows *sql.Rows) ([]domain.APIKey, error) {
	defer rows.Close()
	keys := []domain.APIKey{}
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.ID, &k.ActorID, &k.Name, &k.KeyHash, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
