package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPAuthMethod selects how the fetcher authenticates.
type SFTPAuthMethod string

const (
	// SFTPAuthPassword uses password authentication.
	SFTPAuthPassword SFTPAuthMethod = "password"

	// SFTPAuthKey uses private key authentication.
	SFTPAuthKey SFTPAuthMethod = "key"
)

// SFTPConfig holds connection settings for an agency SFTP endpoint.
type SFTPConfig struct {
	// Host is the remote hostname or IP address.
	Host string

	// Port is the SSH port (default: 22).
	Port int

	// User is the SSH username.
	User string

	// AuthMethod specifies which authentication method to use.
	AuthMethod SFTPAuthMethod

	// Password for password-based authentication.
	Password string

	// PrivateKeyPath is the path to the private key file.
	PrivateKeyPath string

	// PrivateKeyPassphrase is the passphrase for encrypted private keys.
	PrivateKeyPassphrase string

	// KnownHostsPath is the path to the known_hosts file. When empty and
	// StrictHostKeyChecking is off, host keys are not verified.
	KnownHostsPath string

	// StrictHostKeyChecking rejects hosts not present in known_hosts.
	StrictHostKeyChecking bool

	// ConnectionTimeout bounds connection establishment.
	ConnectionTimeout time.Duration
}

// DefaultSFTPConfig returns a config with sensible defaults.
func DefaultSFTPConfig(host, user string) *SFTPConfig {
	return &SFTPConfig{
		Host:                  host,
		Port:                  22,
		User:                  user,
		AuthMethod:            SFTPAuthKey,
		KnownHostsPath:        filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"),
		StrictHostKeyChecking: true,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *SFTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	switch c.AuthMethod {
	case SFTPAuthPassword:
		if c.Password == "" {
			return fmt.Errorf("password is required for password authentication")
		}
	case SFTPAuthKey:
		if c.PrivateKeyPath == "" {
			return fmt.Errorf("private key path is required for key authentication")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}
	return nil
}

// buildClientConfig creates an ssh.ClientConfig from the config.
func (c *SFTPConfig) buildClientConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod
	switch c.AuthMethod {
	case SFTPAuthPassword:
		authMethods = append(authMethods, ssh.Password(c.Password))
	case SFTPAuthKey:
		keyBytes, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		var signer ssh.Signer
		if c.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(c.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.KnownHostsPath != "" && c.StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		// Insecure: accept any host key (only for testing/development)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.ConnectionTimeout,
	}, nil
}

// Address returns the formatted SSH address (host:port).
func (c *SFTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SFTPFetcher downloads raw files from an agency SFTP endpoint into a local
// raw directory before the pipeline locates them.
type SFTPFetcher struct {
	config *SFTPConfig
}

// NewSFTPFetcher creates a fetcher from the given config.
func NewSFTPFetcher(config *SFTPConfig) (*SFTPFetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &SFTPFetcher{config: config}, nil
}

// Fetch downloads the remote paths into localDir and returns the local
// paths, in input order. Existing local files are overwritten.
func (f *SFTPFetcher) Fetch(ctx context.Context, remotePaths []string, localDir string) ([]string, error) {
	clientConfig, err := f.config.buildClientConfig()
	if err != nil {
		return nil, pipelineErr(KindConfiguration, "fetch", err)
	}

	address := f.config.Address()
	log.Debug().Str("address", address).Msg("establishing SFTP connection")

	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)
	go func() {
		client, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- client
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		return nil, pipelineErr(KindIO, "fetch", ctx.Err())
	case err := <-errChan:
		return nil, pipelineErr(KindIO, "fetch", err)
	case sshClient = <-connChan:
	}
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, pipelineErr(KindIO, "fetch", err)
	}
	defer sftpClient.Close()

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, pipelineErr(KindIO, "fetch", err)
	}

	localPaths := make([]string, len(remotePaths))
	for i, remote := range remotePaths {
		local := filepath.Join(localDir, filepath.Base(remote))
		if err := f.download(sftpClient, remote, local); err != nil {
			return nil, err
		}
		log.Info().Str("remote", remote).Str("local", local).Msg("raw file downloaded")
		localPaths[i] = local
	}
	return localPaths, nil
}

func (f *SFTPFetcher) download(client *sftp.Client, remote, local string) error {
	src, err := client.Open(remote)
	if err != nil {
		return pipelineErr(KindIO, "fetch", fmt.Errorf("opening %s: %w", remote, err))
	}
	defer src.Close()

	dst, err := os.Create(local)
	if err != nil {
		return pipelineErr(KindIO, "fetch", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return pipelineErr(KindIO, "fetch", fmt.Errorf("downloading %s: %w", remote, err))
	}
	return nil
}
