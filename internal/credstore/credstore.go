package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by Load when nothing has been saved yet.
var ErrNoToken = errors.New("credstore: no token saved")

// Store keeps the OAuth token between runs.
type Store interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// FileStore persists the token as JSON, readable by the owner only.
type FileStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read %s: %w", s.Path, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("credstore: decode %s: %w", s.Path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

// Save writes through a temp file so a crash never leaves a truncated token.
func (s *FileStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("credstore: nil token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("credstore: mkdir %s: %w", dir, err)
		}
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("credstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("credstore: rename %s: %w", tmp, err)
	}
	return nil
}

// SavingTokenSource hands out tokens from src and saves each new access token to store.
// Save failures are reported through onErr and do not fail the request.
func SavingTokenSource(src oauth2.TokenSource, store Store, last *oauth2.Token, onErr func(error)) oauth2.TokenSource {
	return &savingSource{src: src, store: store, last: last, onErr: onErr}
}

type savingSource struct {
	src   oauth2.TokenSource
	store Store
	onErr func(error)

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		if err := s.store.Save(tok); err != nil && s.onErr != nil {
			s.onErr(err)
		}
		s.last = tok
	}
	return tok, nil
}
