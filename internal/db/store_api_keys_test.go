package db

import (
	"strings"
	"testing"
)

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)

	n, err := s.CountAPIKeys()
	if err != nil {
		t.Fatalf("CountAPIKeys failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 keys, got %d", n)
	}

	// Create
	key, err := s.CreateAPIKey("Test Key")
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "vgl_") {
		t.Errorf("Key should carry the vgl_ prefix, got %q", key)
	}

	// Validate Access
	valid, err := s.ValidateAPIKey(key)
	if err != nil {
		t.Fatalf("ValidateAPIKey failed: %v", err)
	}
	if !valid {
		t.Error("Expected key to be valid")
	}

	// Validate Fail
	valid, _ = s.ValidateAPIKey("vgl_WRONG")
	if valid {
		t.Error("Expected invalid key to be rejected")
	}
	valid, _ = s.ValidateAPIKey(key[:12] + strings.Repeat("0", len(key)-12))
	if valid {
		t.Error("Expected key with matching prefix but wrong secret to be rejected")
	}

	// List
	keys, err := s.ListAPIKeys()
	if err != nil {
		t.Fatalf("ListAPIKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("Expected 1 key, got %d", len(keys))
	}
	if keys[0].KeyPrefix != key[:12] {
		t.Errorf("Stored prefix %q does not match key prefix %q", keys[0].KeyPrefix, key[:12])
	}

	if n, _ := s.CountAPIKeys(); n != 1 {
		t.Errorf("Expected count 1, got %d", n)
	}

	// Delete
	if err := s.DeleteAPIKey(keys[0].ID); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}

	// Verify Gone
	valid, _ = s.ValidateAPIKey(key)
	if valid {
		t.Error("Key should be invalid after deletion")
	}
	if err := s.DeleteAPIKey(keys[0].ID); err != ErrAPIKeyNotFound {
		t.Errorf("Expected ErrAPIKeyNotFound, got %v", err)
	}
}
