package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig holds the settings for a remote post directory.
type SFTPConfig struct {
	Addr     string // host:port
	User     string
	Password string
	// HostKey is the server public key in authorized_keys format.
	HostKey string
	RootDir string
}

type sftpClient interface {
	ReadDir(p string) ([]os.FileInfo, error)
	Stat(p string) (os.FileInfo, error)
}

// SFTP serves items from a directory on an SFTP server. Roots are resolved
// relative to RootDir.
type SFTP struct {
	RootDir string

	client sftpClient
	open   func(name string) (io.ReadCloser, error)
	closer func() error
}

// NewSFTP wraps an established SFTP client.
func NewSFTP(client *sftp.Client, rootDir string) *SFTP {
	return &SFTP{
		RootDir: rootDir,
		client:  client,
		open: func(name string) (io.ReadCloser, error) {
			return client.Open(name)
		},
		closer: client.Close,
	}
}

// DialSFTP connects to the server described by config.
func DialSFTP(config SFTPConfig) (*SFTP, error) {
	if config.HostKey == "" {
		return nil, errors.New("storage: sftp host key is required")
	}
	hostKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(config.HostKey))
	if err != nil {
		return nil, fmt.Errorf("storage: sftp host key: %w", err)
	}
	sshClient, err := ssh.Dial("tcp", config.Addr, &ssh.ClientConfig{
		User:            config.User,
		Auth:            []ssh.AuthMethod{ssh.Password(config.Password)},
		HostKeyCallback: ssh.FixedHostKey(hostKey),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: sftp dial %s: %w", config.Addr, err)
	}
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("storage: sftp session: %w", err)
	}
	s := NewSFTP(client, config.RootDir)
	s.closer = func() error {
		err := client.Close()
		if closeErr := sshClient.Close(); err == nil {
			err = closeErr
		}
		return err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *SFTP) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *SFTP) path(root string, id ...string) string {
	return path.Join(append([]string{s.RootDir, root}, id...)...)
}

func (s *SFTP) List(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(s.path(root))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, info := range infos {
		if info.Mode().IsRegular() {
			ids = append(ids, info.Name())
		}
	}
	return ids, nil
}

func (s *SFTP) Exists(ctx context.Context, root, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	info, err := s.client.Stat(s.path(root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *SFTP) Open(ctx context.Context, root, id string) (io.ReadCloser, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.open(s.path(root, id))
}

func (s *SFTP) Size(ctx context.Context, root, id string) (int64, error) {
	if !ValidID(id) {
		return 0, ErrInvalidID
	}
	info, err := s.client.Stat(s.path(root, id))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
