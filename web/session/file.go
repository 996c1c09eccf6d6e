package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web/console"

	"github.com/goccy/go-json"
)

const tokenFileName = "token.json"

type tokenFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// FileStore keeps the admin token in a 0600 JSON file so a CLI session
// survives restarts.
type FileStore struct {
	path string
}

// NewFileStore stores the token in dir/token.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, tokenFileName)}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Restore() console.Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warning("unable to read token file:", err)
		}
		return console.Session{}
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		logger.Warning("token file is corrupt, ignoring it:", err)
		return console.Session{}
	}
	return console.Session{Token: tf.Token}
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenFile{Token: token, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
