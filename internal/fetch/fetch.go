// Package fetch downloads remote report files to local paths.
//
// A download runs through one session: connect, authenticate, probe the
// remote size, download, close. The session is closed on every path once
// connect succeeds. Bytes are staged in a temporary file next to the
// destination and renamed over it only after a complete transfer, so a
// failed download never clobbers the previous local copy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/logging"
)

// Session is an authenticated connection to the remote server.
type Session interface {
	Authenticate(username, password string) error

	// Size returns the remote file size. Errors wrapping
	// core.ErrRemoteNotFound mean the path does not exist; other errors
	// mean the size is unknown.
	Size(remotePath string) (int64, error)

	// Download streams the remote file into w.
	Download(remotePath string, w io.Writer) error

	Close() error
}

// Transport opens sessions for one protocol.
type Transport interface {
	Connect(ctx context.Context, addr string) (Session, error)
}

// Config holds transport settings.
type Config struct {
	Timeout        time.Duration
	KnownHostsFile string // ssh only; empty accepts any host key
}

// DiskFreeFunc reports free bytes on the volume holding dir.
type DiskFreeFunc func(ctx context.Context, dir string) (uint64, error)

// Client implements core.Fetcher over pluggable transports.
type Client struct {
	transports map[core.Protocol]Transport
	diskFree   DiskFreeFunc
}

// Option configures a Client.
type Option func(*Client)

// WithTransport registers or replaces the transport for a protocol.
func WithTransport(p core.Protocol, t Transport) Option {
	return func(c *Client) { c.transports[p] = t }
}

// WithDiskFree replaces the free-space probe.
func WithDiskFree(fn DiskFreeFunc) Option {
	return func(c *Client) { c.diskFree = fn }
}

// NewClient creates a Client with the FTP and SSH transports.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	sshTransport, err := NewSSHTransport(cfg.Timeout, cfg.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transports: map[core.Protocol]Transport{
			core.ProtocolFTP: &FTPTransport{Timeout: cfg.Timeout},
			core.ProtocolSSH: sshTransport,
		},
		diskFree: volumeFree,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// volumeFree reads free space with gopsutil.
func volumeFree(ctx context.Context, dir string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Fetch downloads remotePath to localPath, overwriting it.
// Errors are *core.FetchError. There is no retry.
func (c *Client) Fetch(ctx context.Context, creds core.Credentials, remotePath, localPath string) error {
	fail := func(kind, cause error) error {
		return core.NewFetchError(kind, creds.Server, remotePath, localPath, cause)
	}

	proto := creds.Protocol
	if proto == "" {
		proto = core.ProtocolFTP
	}
	transport, ok := c.transports[proto]
	if !ok {
		return fail(core.ErrConnectFailed, fmt.Errorf("unsupported protocol %q", proto))
	}

	port := creds.Port
	if port == 0 {
		port = proto.DefaultPort()
	}
	addr := net.JoinHostPort(creds.Server, strconv.Itoa(port))
	logger := logging.WithFields(ctx, "addr", addr, "protocol", proto, "remote", remotePath)

	sess, err := transport.Connect(ctx, addr)
	if err != nil {
		return fail(core.ErrConnectFailed, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Debug("session close failed", "error", cerr)
		}
	}()

	if err := sess.Authenticate(creds.Username, creds.Password); err != nil {
		return fail(core.ErrAuthFailed, err)
	}

	size, err := sess.Size(remotePath)
	switch {
	case errors.Is(err, core.ErrRemoteNotFound):
		return fail(core.ErrRemoteNotFound, err)
	case err != nil:
		logger.Debug("remote size unknown", "error", err)
		size = -1
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(core.ErrLocalWriteFailed, err)
	}

	if size >= 0 && c.diskFree != nil {
		if free, err := c.diskFree(ctx, dir); err == nil && uint64(size) > free {
			return fail(core.ErrLocalWriteFailed, fmt.Errorf("need %d bytes, %d free in %s", size, free, dir))
		}
	}

	written, err := c.download(sess, remotePath, localPath)
	if err != nil {
		var we *writeError
		switch {
		case errors.As(err, &we):
			return fail(core.ErrLocalWriteFailed, we.err)
		case errors.Is(err, core.ErrRemoteNotFound):
			return fail(core.ErrRemoteNotFound, err)
		default:
			return fail(core.ErrTransferFailed, err)
		}
	}

	logger.Info("download complete", "local", localPath, "bytes", written)
	return nil
}

// writeError marks a failure on the local side of a transfer.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// countingWriter records bytes written and the first local write error.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	if err != nil && cw.err == nil {
		cw.err = err
	}
	return n, err
}

// download stages the transfer in a temp file and renames it into place.
func (c *Client) download(sess Session, remotePath, localPath string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), filepath.Base(localPath)+".*.part")
	if err != nil {
		return 0, &writeError{err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	cw := &countingWriter{w: tmp}
	if err := sess.Download(remotePath, cw); err != nil {
		if cw.err != nil {
			return cw.n, &writeError{cw.err}
		}
		return cw.n, err
	}

	if err := tmp.Chmod(0o644); err != nil {
		return cw.n, &writeError{err}
	}
	if err := tmp.Close(); err != nil {
		return cw.n, &writeError{err}
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName)
		committed = true
		return cw.n, &writeError{err}
	}
	committed = true
	return cw.n, nil
}
