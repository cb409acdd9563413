package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/williamokano/s3_connector/pkg/storage"
)

// fileSystem is the subset of *sftp.Client the backend needs
type fileSystem interface {
	MkdirAll(path string) error
	Create(path string) (*sftp.File, error)
	Open(path string) (*sftp.File, error)
	Rename(oldname, newname string) error
	Remove(path string) error
	Close() error
}

type Backend struct {
	name      string
	sshClient *ssh.Client
	fs        fileSystem
	basePath  string
}

func init() {
	storage.RegisterBackend("ssh", func(ctx context.Context, cfg storage.Config) (storage.Gateway, error) {
		return New(cfg)
	})
}

// New creates a new SSH/SFTP gateway. Objects are stored as files under
// remote_path/bucket/key.
func New(cfg storage.Config) (*Backend, error) {
	sshCfg, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}

	clientConfig, err := clientConfig(sshCfg)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "auth", err)
	}

	// Connect to SSH server
	addr := fmt.Sprintf("%s:%d", sshCfg.Host, sshCfg.Port)
	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connect", dialError(err))
	}

	// Create SFTP client
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "sftp init", storage.Transport(err))
	}

	return &Backend{
		name:      cfg.Name,
		sshClient: sshClient,
		fs:        sftpClient,
		basePath:  path.Join(sshCfg.RemotePath, cfg.Bucket),
	}, nil
}

// dialError reports rejected credentials as configuration and everything
// else as transport
func dialError(err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %w", storage.ErrInvalidConfig, err)
	}
	return storage.Transport(err)
}

func clientConfig(sshCfg *Config) (*ssh.ClientConfig, error) {
	cc := &ssh.ClientConfig{
		User:            sshCfg.User,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against a known_hosts file
		Timeout:         30 * time.Second,
	}

	if sshCfg.Password != "" {
		cc.Auth = append(cc.Auth, ssh.Password(sshCfg.Password))
	}

	if sshCfg.KeyPath != "" {
		key, err := os.ReadFile(sshCfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read SSH key: %v", storage.ErrInvalidConfig, err)
		}

		var signer ssh.Signer
		if sshCfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(sshCfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse SSH key: %v", storage.ErrInvalidConfig, err)
		}

		cc.Auth = append(cc.Auth, ssh.PublicKeys(signer))
	}

	if len(cc.Auth) == 0 {
		return nil, fmt.Errorf("%w: ssh backend requires a password or key_path", storage.ErrInvalidConfig)
	}

	return cc, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "ssh" }

// Put uploads an object via SFTP, writing a temp file first so readers
// never observe a partial object
func (b *Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	remotePath, err := b.resolve(key)
	if err != nil {
		return err
	}

	if err := b.fs.MkdirAll(path.Dir(remotePath)); err != nil {
		return storage.WrapError(b.name, "mkdir", storage.Transport(err))
	}

	tmpPath := remotePath + ".part"
	remoteFile, err := b.fs.Create(tmpPath)
	if err != nil {
		return storage.WrapError(b.name, "create", storage.Transport(err))
	}

	if _, err := io.Copy(remoteFile, bytes.NewReader(body)); err != nil {
		remoteFile.Close()
		b.fs.Remove(tmpPath)
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}
	if err := remoteFile.Close(); err != nil {
		b.fs.Remove(tmpPath)
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}

	// SFTP rename does not replace an existing target on every server
	b.fs.Remove(remotePath)
	if err := b.fs.Rename(tmpPath, remotePath); err != nil {
		return storage.WrapError(b.name, "rename", storage.Transport(err))
	}

	return nil
}

// Get downloads an object via SFTP
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	remotePath, err := b.resolve(key)
	if err != nil {
		return nil, err
	}

	remoteFile, err := b.fs.Open(remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NotFound(key, err)
		}
		return nil, storage.WrapError(b.name, "open", storage.Transport(err))
	}
	defer remoteFile.Close()

	data, err := io.ReadAll(remoteFile)
	if err != nil {
		return nil, storage.WrapError(b.name, "read", storage.Transport(err))
	}
	return data, nil
}

// Close releases resources
func (b *Backend) Close() error {
	if b.fs != nil {
		b.fs.Close()
	}
	if b.sshClient != nil {
		b.sshClient.Close()
	}
	return nil
}

func (b *Backend) resolve(key string) (string, error) {
	remotePath := path.Join(b.basePath, key)
	if !strings.HasPrefix(remotePath, b.basePath+"/") {
		return "", fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}
	return remotePath, nil
}

func parseConfig(cfg storage.Config) (*Config, error) {
	sshCfg := &Config{
		Host:          cfg.StringOption("host"),
		Port:          22,
		User:          cfg.StringOption("user"),
		Password:      cfg.StringOption("password"),
		KeyPath:       cfg.StringOption("key_path"),
		KeyPassphrase: cfg.StringOption("key_passphrase"),
		RemotePath:    cfg.StringOption("remote_path"),
	}

	if sshCfg.Host == "" {
		return nil, fmt.Errorf("%w: missing required option: host", storage.ErrInvalidConfig)
	}
	if sshCfg.User == "" {
		return nil, fmt.Errorf("%w: missing required option: user", storage.ErrInvalidConfig)
	}
	if sshCfg.RemotePath == "" {
		return nil, fmt.Errorf("%w: missing required option: remote_path", storage.ErrInvalidConfig)
	}

	switch v := cfg.Options["port"].(type) {
	case int:
		sshCfg.Port = v
	case float64:
		sshCfg.Port = int(v)
	case string:
		if v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid port %q", storage.ErrInvalidConfig, v)
			}
			sshCfg.Port = port
		}
	}

	return sshCfg, nil
}
