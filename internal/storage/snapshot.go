package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Tables persist as whole-file JSON snapshots: small enough to rewrite on
// every mutation, and trivially inspectable on disk. A missing or corrupt
// file loads as an empty table; persistence problems never become startup
// failures or caller errors.

func loadTable[T any](path string) map[string]T {
	out := map[string]T{}
	b, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]T{}
	}
	return out
}

func saveTable[T any](path string, table map[string]T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(table)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
