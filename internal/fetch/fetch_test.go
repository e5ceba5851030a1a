package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/logging"
)

// fakeServer is an in-memory remote holding files by path.
type fakeServer struct {
	files      map[string][]byte
	password   string
	connectErr error
	brokenAt   int // Download fails after this many bytes when > 0

	connects int
	closes   int
	lastAddr string
}

func (f *fakeServer) Connect(_ context.Context, addr string) (Session, error) {
	f.lastAddr = addr
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connects++
	return &fakeSession{srv: f}, nil
}

type fakeSession struct {
	srv    *fakeServer
	authed bool
}

func (s *fakeSession) Authenticate(_, password string) error {
	if password != s.srv.password {
		return errors.New("530 Login incorrect")
	}
	s.authed = true
	return nil
}

func (s *fakeSession) Size(remotePath string) (int64, error) {
	data, ok := s.srv.files[remotePath]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrRemoteNotFound, remotePath)
	}
	return int64(len(data)), nil
}

func (s *fakeSession) Download(remotePath string, w io.Writer) error {
	data, ok := s.srv.files[remotePath]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrRemoteNotFound, remotePath)
	}
	if s.srv.brokenAt > 0 {
		if _, err := w.Write(data[:s.srv.brokenAt]); err != nil {
			return err
		}
		return errors.New("connection reset by peer")
	}
	_, err := w.Write(data)
	return err
}

func (s *fakeSession) Close() error {
	s.srv.closes++
	return nil
}

func newTestClient(srv *fakeServer, free uint64) *Client {
	return &Client{
		transports: map[core.Protocol]Transport{core.ProtocolFTP: srv},
		diskFree: func(context.Context, string) (uint64, error) {
			return free, nil
		},
	}
}

var creds = core.Credentials{Server: "files.example.com", Username: "reports", Password: "pw"}

func TestFetchWritesBytesVerbatim(t *testing.T) {
	payload := []byte("드라이브,드라이브 용량 (GB)\r\nC:,100\r\n\x00\xff")
	srv := &fakeServer{files: map[string][]byte{"/out/a.csv": payload}, password: "pw"}
	c := newTestClient(srv, 1<<30)

	local := filepath.Join(t.TempDir(), "nested", "a.csv")
	if err := c.Fetch(context.Background(), creds, "/out/a.csv", local); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("Failed to read local file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("local content = %q, want %q", got, payload)
	}
	if srv.lastAddr != "files.example.com:21" {
		t.Errorf("dialed %q, want default FTP port", srv.lastAddr)
	}
	if srv.closes != srv.connects {
		t.Errorf("closes = %d, connects = %d", srv.closes, srv.connects)
	}
}

func TestFetchOverwritesExistingFile(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{"/a": []byte("new")}, password: "pw"}
	c := newTestClient(srv, 1<<30)

	local := filepath.Join(t.TempDir(), "a.csv")
	if err := os.WriteFile(local, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatalf("Failed to seed local file: %v", err)
	}

	if err := c.Fetch(context.Background(), creds, "/a", local); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, _ := os.ReadFile(local)
	if string(got) != "new" {
		t.Errorf("local content = %q, want %q", got, "new")
	}
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name      string
		srv       *fakeServer
		creds     core.Credentials
		remote    string
		free      uint64
		badLocal  bool
		wantKind  error
		wantClose bool
	}{
		{
			name:     "connect refused",
			srv:      &fakeServer{connectErr: errors.New("dial tcp: connection refused")},
			creds:    creds,
			remote:   "/a",
			free:     1 << 30,
			wantKind: core.ErrConnectFailed,
		},
		{
			name:      "auth rejected",
			srv:       &fakeServer{files: map[string][]byte{"/a": []byte("x")}, password: "other"},
			creds:     creds,
			remote:    "/a",
			free:      1 << 30,
			wantKind:  core.ErrAuthFailed,
			wantClose: true,
		},
		{
			name:      "remote not found",
			srv:       &fakeServer{files: map[string][]byte{}, password: "pw"},
			creds:     creds,
			remote:    "/missing",
			free:      1 << 30,
			wantKind:  core.ErrRemoteNotFound,
			wantClose: true,
		},
		{
			name:      "disk full",
			srv:       &fakeServer{files: map[string][]byte{"/a": []byte("0123456789")}, password: "pw"},
			creds:     creds,
			remote:    "/a",
			free:      5,
			wantKind:  core.ErrLocalWriteFailed,
			wantClose: true,
		},
		{
			name:      "local parent is a file",
			srv:       &fakeServer{files: map[string][]byte{"/a": []byte("x")}, password: "pw"},
			creds:     creds,
			remote:    "/a",
			free:      1 << 30,
			badLocal:  true,
			wantKind:  core.ErrLocalWriteFailed,
			wantClose: true,
		},
		{
			name:      "stream broken",
			srv:       &fakeServer{files: map[string][]byte{"/a": []byte("0123456789")}, password: "pw", brokenAt: 4},
			creds:     creds,
			remote:    "/a",
			free:      1 << 30,
			wantKind:  core.ErrTransferFailed,
			wantClose: true,
		},
		{
			name:     "unsupported protocol",
			srv:      &fakeServer{},
			creds:    core.Credentials{Server: "h", Protocol: "gopher"},
			remote:   "/a",
			wantKind: core.ErrConnectFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			local := filepath.Join(dir, "out.csv")
			if tt.badLocal {
				blocker := filepath.Join(dir, "blocker")
				if err := os.WriteFile(blocker, nil, 0o644); err != nil {
					t.Fatalf("Failed to create blocker: %v", err)
				}
				local = filepath.Join(blocker, "out.csv")
			}

			c := newTestClient(tt.srv, tt.free)
			err := c.Fetch(context.Background(), tt.creds, tt.remote, local)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("Fetch() error = %v, want kind %v", err, tt.wantKind)
			}

			var fe *core.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not *core.FetchError", err)
			}
			if fe.RemotePath != tt.remote {
				t.Errorf("RemotePath = %q, want %q", fe.RemotePath, tt.remote)
			}

			if tt.wantClose && tt.srv.closes != 1 {
				t.Errorf("session closed %d times, want 1", tt.srv.closes)
			}
			if _, err := os.Stat(local); err == nil {
				t.Error("local file created on failure")
			}
		})
	}
}

func TestFetchFailureKeepsPreviousFile(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{"/a": []byte("0123456789")}, password: "pw", brokenAt: 3}
	c := newTestClient(srv, 1<<30)

	dir := t.TempDir()
	local := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(local, []byte("previous"), 0o644); err != nil {
		t.Fatalf("Failed to seed local file: %v", err)
	}

	if err := c.Fetch(context.Background(), creds, "/a", local); err == nil {
		t.Fatal("Fetch() succeeded, want transfer error")
	}

	got, _ := os.ReadFile(local)
	if string(got) != "previous" {
		t.Errorf("local content = %q, want previous copy kept", got)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestFetchExplicitPort(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{"/a": []byte("x")}, password: "pw"}
	c := newTestClient(srv, 1<<30)

	cr := creds
	cr.Port = 2121
	if err := c.Fetch(context.Background(), cr, "/a", filepath.Join(t.TempDir(), "a")); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if srv.lastAddr != "files.example.com:2121" {
		t.Errorf("dialed %q, want port 2121", srv.lastAddr)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/out/a.csv", `'/out/a.csv'`},
		{"/out/it's.csv", `'/out/it'\''s.csv'`},
		{"/out/a b;rm -rf", `'/out/a b;rm -rf'`},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewClientRejectsMissingKnownHosts(t *testing.T) {
	_, err := NewClient(Config{KnownHostsFile: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("NewClient() succeeded with missing known_hosts file")
	}
}

func TestSSHSessionLogsRunID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "info", "text")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	transport, err := NewSSHTransport(2*time.Second, "")
	if err != nil {
		t.Fatalf("NewSSHTransport() error = %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-7")
	sess, err := transport.Connect(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sess.Close()

	if err := sess.Authenticate("user", "pass"); err == nil {
		t.Fatal("Authenticate() succeeded against a closed connection")
	}

	out := buf.String()
	if !strings.Contains(out, "host key not verified") {
		t.Errorf("output %q missing host key warning", out)
	}
	if !strings.Contains(out, "run_id=run-7") {
		t.Errorf("output %q missing run_id=run-7", out)
	}
}
