package db

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"keyPrefix"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
}

// CreateAPIKey mints a new bearer key and returns the full secret.
// Only the bcrypt hash and a lookup prefix are stored; the secret is
// shown once.
func (s *Store) CreateAPIKey(name string) (string, error) {
	keyBytes := make([]byte, 24)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "vgl_" + hex.EncodeToString(keyBytes)
	prefix := rawKey[:12] // "vgl_" plus first 8 hex chars

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}

	_, err = s.db.Exec(s.rebind(`INSERT INTO api_keys (id, name, prefix, key_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), name, prefix, string(hash), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store api key: %w", err)
	}
	return rawKey, nil
}

func (s *Store) ListAPIKeys() ([]APIKey, error) {
	rows, err := s.db.Query(`SELECT id, name, prefix, created_at, last_used_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []APIKey
	for rows.Next() {
		var (
			k        APIKey
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		k.LastUsed = timePtr(lastUsed)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) CountAPIKeys() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM api_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAPIKey(id string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM api_keys WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// ValidateAPIKey checks a presented bearer key against stored hashes.
// Candidates are narrowed by prefix so at most a handful of bcrypt
// comparisons run per request.
func (s *Store) ValidateAPIKey(key string) (bool, error) {
	if len(key) < 12 {
		return false, nil
	}
	prefix := key[:12]

	rows, err := s.db.Query(s.rebind(`SELECT id, key_hash FROM api_keys WHERE prefix = ?`), prefix)
	if err != nil {
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err == nil {
			// sql.DB is safe for concurrent use; last-used is best effort.
			go func(keyID string) {
				_, _ = s.db.Exec(s.rebind(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`),
					time.Now().UTC(), keyID)
			}(id)
			return true, nil
		}
	}
	return false, rows.Err()
}
