package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// persistLocked writes the current state to the configured file, if
// any. Failures are silent: losing the cache costs a re-login, not
// correctness. Callers hold m.mu.
func (m *Manager) persistLocked() {
	if m.file == "" {
		return
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return
	}
	tmp := m.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, m.file)
}

func loadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if st.Token == "" || st.User == nil {
		st = State{}
	}
	return st, nil
}
