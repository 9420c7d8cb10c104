package identity

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tomp11/sb-stamp-manager/pkg/dotdir"
)

const (
	sessionFile = "session.toml"

	currentVersion = 0
)

// sessionState is the on-disk shape of session.toml.
type sessionState struct {
	Version int    `toml:"version"`
	UserID  string `toml:"user_id,omitempty"`
}

// Manager persists the active session as session.toml in the .stamps/
// directory. Whoever edits that file (this process or another one on the
// same machine) moves the whole device between guest and signed-in mode;
// the Notifier watches it for exactly that reason.
type Manager struct {
	targetPath string
}

// NewManager creates a session Manager. If override is non-empty it is
// used as the .stamps/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	ddm := dotdir.NewManager()

	target, err := ddm.Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: filepath.Join(target, sessionFile)}, nil
}

// Current reads the active session. A missing or empty file means the
// anonymous session.
func (m *Manager) Current() (Session, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Anonymous(), nil
		}
		return Anonymous(), fmt.Errorf("reading session: %w", err)
	}

	state := sessionState{}
	if err := toml.Unmarshal(data, &state); err != nil {
		return Anonymous(), fmt.Errorf("parsing session: %w", err)
	}

	return Session{UserID: strings.TrimSpace(state.UserID)}, nil
}

// SignIn records userID as the active session.
func (m *Manager) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}

	return m.write(sessionState{Version: currentVersion, UserID: userID})
}

// SignOut returns the device to the anonymous session.
func (m *Manager) SignOut() error {
	return m.write(sessionState{Version: currentVersion})
}

// GetTarget returns the resolved path to the session file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

func (m *Manager) write(state sessionState) error {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(state); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}
