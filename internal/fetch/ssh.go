package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/logging"
)

// SSHTransport reads remote files over an SSH session with password
// authentication. The remote host needs a POSIX shell with cat and stat.
type SSHTransport struct {
	Timeout         time.Duration
	HostKeyCallback ssh.HostKeyCallback

	insecure bool
}

// NewSSHTransport verifies host keys against knownHostsFile. When the file
// is empty any host key is accepted.
func NewSSHTransport(timeout time.Duration, knownHostsFile string) (*SSHTransport, error) {
	callback := ssh.InsecureIgnoreHostKey()
	if knownHostsFile != "" {
		cb, err := knownhosts.New(knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", knownHostsFile, err)
		}
		callback = cb
	}
	return &SSHTransport{
		Timeout:         timeout,
		HostKeyCallback: callback,
		insecure:        knownHostsFile == "",
	}, nil
}

// Connect opens the TCP connection. The SSH handshake happens in
// Authenticate so a rejected login is distinguishable from an unreachable host.
func (t *SSHTransport) Connect(ctx context.Context, addr string) (Session, error) {
	d := net.Dialer{Timeout: t.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &sshSession{
		transport: t,
		conn:      conn,
		addr:      addr,
		logger:    logging.WithFields(ctx, "addr", addr),
	}, nil
}

type sshSession struct {
	transport *SSHTransport
	conn      net.Conn
	addr      string
	client    *ssh.Client
	logger    *slog.Logger
}

func (s *sshSession) Authenticate(username, password string) error {
	if s.transport.HostKeyCallback == nil {
		return fmt.Errorf("no host key callback configured")
	}
	if s.transport.insecure {
		s.logger.Warn("ssh host key not verified; set FETCH_KNOWN_HOSTS")
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: s.transport.HostKeyCallback,
		Timeout:         s.transport.Timeout,
	}

	if s.transport.Timeout > 0 {
		s.conn.SetDeadline(time.Now().Add(s.transport.Timeout))
		defer s.conn.SetDeadline(time.Time{})
	}

	c, chans, reqs, err := ssh.NewClientConn(s.conn, s.addr, cfg)
	if err != nil {
		return err
	}
	s.client = ssh.NewClient(c, chans, reqs)
	s.logger.Debug("ssh session established", "server_version", string(c.ServerVersion()))
	return nil
}

// run executes cmd with stdout going to w and returns stderr on failure.
func (s *sshSession) run(cmd string, w io.Writer) error {
	if s.client == nil {
		return fmt.Errorf("ssh session not authenticated")
	}

	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdout = w
	session.Stderr = &stderr

	if err := session.Run(cmd); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "No such file") {
			return fmt.Errorf("%w: %s", core.ErrRemoteNotFound, msg)
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", cmd, err, msg)
		}
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func (s *sshSession) Size(remotePath string) (int64, error) {
	var out bytes.Buffer
	if err := s.run("stat -c %s -- "+shellQuote(remotePath), &out); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected stat output %q", out.String())
	}
	return n, nil
}

func (s *sshSession) Download(remotePath string, w io.Writer) error {
	return s.run("cat -- "+shellQuote(remotePath), w)
}

func (s *sshSession) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return s.conn.Close()
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
