package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/powerbench/powerbench/internal/config"
)

const dialTimeout = 15 * time.Second

// Target is an SSH-reachable host to benchmark.
type Target struct {
	client *ssh.Client
	addr   string
}

// Dial connects to the target described by cfg.
func Dial(cfg config.SSHConfig) (*Target, error) {
	auths, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // benchmarking freshly provisioned hosts
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}

	return &Target{client: client, addr: addr}, nil
}

// authMethods builds the SSH auth chain from the config: public key when a
// key file is set, password when a password env is set.
func authMethods(cfg config.SSHConfig) ([]ssh.AuthMethod, error) {
	var auths []ssh.AuthMethod

	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("remote: read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("remote: parse key file %s: %w", cfg.KeyFile, err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if pw := cfg.Password(); pw != "" {
		auths = append(auths, ssh.Password(pw))
	}

	if len(auths) == 0 {
		return nil, fmt.Errorf("remote: no usable auth method for %s", cfg.Host)
	}
	return auths, nil
}

// Run executes cmd in a fresh SSH session and returns its combined output.
// When ctx expires the remote process is signalled and the session closed;
// the trial is then recorded as failed by the sampler.
func (t *Target) Run(ctx context.Context, cmd string) ([]byte, error) {
	session, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("remote: new session: %w", err)
	}
	defer session.Close()

	type outcome struct {
		out []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- outcome{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return res.out, fmt.Errorf("remote: run %q on %s: %w", cmd, t.addr, res.err)
		}
		return res.out, nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("remote: run %q on %s: %w", cmd, t.addr, ctx.Err())
	}
}

// ReadFile reads a file from the target over SFTP.
func (t *Target) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := sftp.NewClient(t.client)
	if err != nil {
		return nil, fmt.Errorf("remote: sftp client: %w", err)
	}
	defer client.Close()

	f, err := client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("remote: open %s on %s: %w", path, t.addr, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("remote: read %s on %s: %w", path, t.addr, err)
	}
	return data, nil
}

// Close tears down the SSH connection.
func (t *Target) Close() error {
	return t.client.Close()
}
