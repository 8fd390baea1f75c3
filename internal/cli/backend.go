package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	gcsclient "cloud.google.com/go/storage"

	"canvas-drive-sync/internal/config"
	"canvas-drive-sync/internal/credstore"
	"canvas-drive-sync/internal/storage"
	"canvas-drive-sync/internal/storage/drive"
	"canvas-drive-sync/internal/storage/gcs"
	"canvas-drive-sync/internal/storage/sftpstore"
)

// openStore connects the configured backend. Tests replace it.
var openStore = openBackend

func openBackend(ctx context.Context, cfg config.Config) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendDrive:
		client, err := drive.HTTPClient(ctx, drive.Session{
			CredentialsFile:    cfg.DriveCredentialsFile,
			ServiceAccountFile: cfg.DriveServiceAccount,
			Tokens:             credstore.NewFileStore(cfg.DriveTokenFile),
			Authorize:          promptForCode,
		})
		if err != nil {
			return nil, nil, err
		}
		s, err := drive.New(ctx, client, cfg.DriveChunkSizeMB)
		if err != nil {
			return nil, nil, err
		}
		email, err := s.Verify(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("drive: authorized as %s", email)
		return s, noop, nil

	case config.BackendSFTP:
		s, err := sftpstore.Dial(ctx, sftpstore.Config{
			Host:                  cfg.SFTPHost,
			Port:                  cfg.SFTPPort,
			User:                  cfg.SFTPUser,
			Pass:                  cfg.SFTPPass,
			RemoteDir:             cfg.SFTPDir,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
			KnownHostsFile:        cfg.SFTPKnownHosts,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.BackendGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs: new client: %w", err)
		}
		return gcs.New(client, cfg.GCSBucket, cfg.GCSPrefix), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// promptForCode shows the consent URL and reads the authorization code from stdin.
func promptForCode(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintf(os.Stderr, "Open this URL in a browser and authorize access:\n\n  %s\n\nAuthorization code: ", authURL)

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lines:
		code := strings.TrimSpace(line)
		if !ok || code == "" {
			return "", errors.New("no authorization code entered")
		}
		return code, nil
	}
}
