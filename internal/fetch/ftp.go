package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/JonMunkholm/capview/internal/core"
)

// FTP reply codes that change how an error is classified.
const (
	ftpNotLoggedIn     = 530
	ftpFileUnavailable = 550
)

// FTPTransport connects with github.com/jlaffaye/ftp.
// Transfers use binary mode (TYPE I is set during login).
type FTPTransport struct {
	Timeout time.Duration
}

// Connect dials the control connection.
func (t *FTPTransport) Connect(ctx context.Context, addr string) (Session, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if t.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(t.Timeout))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &ftpSession{conn: conn}, nil
}

type ftpSession struct {
	conn *ftp.ServerConn
}

func (s *ftpSession) Authenticate(username, password string) error {
	if err := s.conn.Login(username, password); err != nil {
		if replyCode(err) == ftpNotLoggedIn {
			return fmt.Errorf("login as %q rejected: %w", username, err)
		}
		return err
	}
	return nil
}

func (s *ftpSession) Size(remotePath string) (int64, error) {
	size, err := s.conn.FileSize(remotePath)
	if err != nil {
		return 0, classifyFTP(err)
	}
	return size, nil
}

func (s *ftpSession) Download(remotePath string, w io.Writer) error {
	resp, err := s.conn.Retr(remotePath)
	if err != nil {
		return classifyFTP(err)
	}

	if _, err := io.Copy(w, resp); err != nil {
		resp.Close()
		return err
	}
	// Close reads the final transfer reply; a failure there means the
	// server did not confirm the whole file.
	return resp.Close()
}

func (s *ftpSession) Close() error {
	return s.conn.Quit()
}

// replyCode extracts the FTP reply code from a jlaffaye/ftp error.
func replyCode(err error) int {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code
	}
	return 0
}

// classifyFTP maps "file unavailable" replies to core.ErrRemoteNotFound.
func classifyFTP(err error) error {
	if replyCode(err) == ftpFileUnavailable {
		return fmt.Errorf("%w: %v", core.ErrRemoteNotFound, err)
	}
	return err
}
