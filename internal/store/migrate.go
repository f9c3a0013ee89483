package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

const migrationFlagKey = "migrated_to_encrypted_v1"

// LegacyFiles maps store keys to the plaintext JSON files earlier releases
// kept them in. Migrated once, then the originals are deleted.
var LegacyFiles = map[string]string{
	"agent_wallets":    "agent_wallets.json",
	"agent_local_data": "agent_local_data.json",
	"audit_trail":      "audit_trail.json",
}

// MigrateLegacy moves the fixed set of legacy plaintext files under dir into
// the encrypted store. Guarded by a persisted flag so it runs at most once.
func (s *Store) MigrateLegacy(dir string) error {
	if _, ok, err := s.backend.Get(migrationFlagKey); err != nil {
		return err
	} else if ok {
		return nil
	}

	migrated := 0
	for key, name := range LegacyFiles {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("[WARN] migrate %q: %v", key, err)
			}
			continue
		}

		var parsed json.RawMessage
		if err := json.Unmarshal(raw, &parsed); err != nil {
			log.Printf("[WARN] migrate %q: invalid json, skipping: %v", key, err)
			continue
		}
		if err := s.SetItem(key, parsed); err != nil {
			log.Printf("[WARN] migrate %q: %v", key, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[WARN] migrate %q: remove legacy file: %v", key, err)
		}
		migrated++
	}

	// The flag itself is not sensitive; store it directly.
	if err := s.backend.Set(migrationFlagKey, []byte("1")); err != nil {
		return err
	}
	if migrated > 0 {
		log.Printf("[INFO] store migration complete, %d key(s) moved", migrated)
	}
	return nil
}
