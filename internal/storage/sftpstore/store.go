package sftpstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

const partSuffix = ".part"

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Pass                  string
	RemoteDir             string
	InsecureIgnoreHostKey bool
	KnownHostsFile        string
}

// Store keeps files on an SFTP server. Folders are directories under the
// remote root and folder ids are their absolute paths.
type Store struct {
	client *sftp.Client
	root   string

	closers []io.Closer
}

// Dial opens an SSH connection and an SFTP session on it.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}

	cb, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	d := net.Dialer{Timeout: sshCfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial error: %w", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: handshake: %w", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}

	s := New(sftpCli, cfg.RemoteDir)
	s.closers = append(s.closers, sshClient)
	return s, nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHostsFile == "" {
		return nil, errors.New("sftp: SFTP_KNOWN_HOSTS is required unless SFTP_INSECURE_IGNORE_HOSTKEY=true")
	}
	cb, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: known_hosts: %w", err)
	}
	return cb, nil
}

// New wraps an established SFTP session rooted at root ("/" when empty).
func New(client *sftp.Client, root string) *Store {
	if root == "" {
		root = "/"
	}
	return &Store{client: client, root: path.Clean(root)}
}

func (s *Store) Name() string { return "sftp" }

func (s *Store) Close() error {
	err := s.client.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Store) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	entries, err := s.client.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sftp: list %s: %w", s.root, err)
	}
	var out []domain.Folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, domain.Folder{
			ID:        path.Join(s.root, e.Name()),
			Name:      e.Name(),
			ParentIDs: []string{s.root},
		})
	}
	return out, nil
}

func (s *Store) EnsureFolder(ctx context.Context, name string) (string, error) {
	dir := path.Join(s.root, storage.PathName(name))
	if err := s.client.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("sftp: mkdir %s: %w", dir, err)
	}
	return dir, nil
}

func (s *Store) Lookup(ctx context.Context, name, parentID string) storage.Lookup {
	dir := s.dir(parentID)
	p := path.Join(dir, storage.PathName(name))

	fi, err := s.client.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return storage.Missing()
	}
	if err != nil {
		return storage.Failed(fmt.Errorf("sftp: stat %s: %w", p, err))
	}
	if fi.IsDir() {
		return storage.Missing()
	}
	return storage.FoundFile(domain.StoredFile{
		ID:             p,
		Name:           fi.Name(),
		Size:           fi.Size(),
		CreatedTime:    fi.ModTime(),
		ParentFolderID: dir,
	})
}

// Upload writes to a ".part" file and renames it into place, so an interrupted
// transfer never leaves a file that a later lookup would treat as present.
func (s *Store) Upload(ctx context.Context, req storage.UploadRequest) (domain.StoredFile, error) {
	dir := s.dir(req.ParentID)
	if err := s.client.MkdirAll(dir); err != nil {
		return domain.StoredFile{}, fmt.Errorf("sftp: mkdir %s: %w", dir, err)
	}

	final := path.Join(dir, storage.PathName(req.Name))
	part := final + partSuffix

	dst, err := s.client.Create(part)
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("sftp: create remote file: %w", err)
	}
	n, err := io.Copy(dst, contextReader{ctx: ctx, r: req.Body})
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.client.Remove(part)
		return domain.StoredFile{}, fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := s.client.Rename(part, final); err != nil {
		s.client.Remove(part)
		return domain.StoredFile{}, fmt.Errorf("sftp: rename %s: %w", final, err)
	}

	return domain.StoredFile{
		ID:             final,
		Name:           path.Base(final),
		MimeType:       req.MimeType,
		Size:           n,
		CreatedTime:    time.Now().UTC(),
		ParentFolderID: dir,
	}, nil
}

func (s *Store) dir(parentID string) string {
	if parentID == "" {
		return s.root
	}
	if path.IsAbs(parentID) {
		return path.Clean(parentID)
	}
	return path.Join(s.root, parentID)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
