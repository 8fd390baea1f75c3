package drive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"

	"canvas-drive-sync/internal/credstore"
)

// Scope limits the session to files this tool created or opened.
const Scope = gdrive.DriveFileScope

// AuthError means no usable Drive session could be established.
// It is fatal: no transfer is attempted.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("drive: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Session describes how to obtain an authorized HTTP client.
// ServiceAccountFile wins over the OAuth client secrets when set.
type Session struct {
	CredentialsFile    string
	ServiceAccountFile string
	Tokens             credstore.Store

	// Authorize is asked for an authorization code when no token is stored.
	// It receives the consent URL.
	Authorize func(ctx context.Context, authURL string) (string, error)
}

// HTTPClient returns a client whose requests carry Drive credentials.
// OAuth tokens refreshed during the run are written back to Tokens.
func HTTPClient(ctx context.Context, s Session) (*http.Client, error) {
	if s.ServiceAccountFile != "" {
		b, err := os.ReadFile(s.ServiceAccountFile)
		if err != nil {
			return nil, &AuthError{Err: err}
		}
		creds, err := google.CredentialsFromJSON(ctx, b, Scope)
		if err != nil {
			return nil, &AuthError{Err: err}
		}
		return oauth2.NewClient(ctx, creds.TokenSource), nil
	}

	b, err := os.ReadFile(s.CredentialsFile)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("read client secrets: %w", err)}
	}
	conf, err := google.ConfigFromJSON(b, Scope)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("parse client secrets: %w", err)}
	}
	if s.Tokens == nil {
		return nil, &AuthError{Err: errors.New("no credential store configured")}
	}

	tok, err := s.Tokens.Load()
	switch {
	case errors.Is(err, credstore.ErrNoToken):
		tok, err = authorize(ctx, conf, s.Authorize)
		if err != nil {
			return nil, &AuthError{Err: err}
		}
		if err := s.Tokens.Save(tok); err != nil {
			log.Printf("drive: could not save token: %v", err)
		}
	case err != nil:
		return nil, &AuthError{Err: err}
	}

	ts := credstore.SavingTokenSource(conf.TokenSource(ctx, tok), s.Tokens, tok, func(err error) {
		log.Printf("drive: could not save refreshed token: %v", err)
	})
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

func authorize(ctx context.Context, conf *oauth2.Config, ask func(context.Context, string) (string, error)) (*oauth2.Token, error) {
	if ask == nil {
		return nil, errors.New("no stored token and no interactive authorization available")
	}
	authURL := conf.AuthCodeURL("canvasdrive", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	code, err := ask(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}
