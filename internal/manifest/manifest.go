// Package manifest resolves the pipeline document: the remote server, its
// credentials and the three remote/local file pairs.
//
// The document is flat XML with any root element:
//
//	<Config>
//	  <FTPServer>files.example.com</FTPServer>
//	  <Username>reports</Username>
//	  <Password>secret</Password>
//	  <RemoteFilePath1>/out/capacity.csv</RemoteFilePath1>
//	  <LocalFilePath1>data/capacity.csv</LocalFilePath1>
//	  ...
//	</Config>
//
// A .yaml or .yml extension selects the same keys in YAML.
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/capview/internal/core"
)

// DefaultFile is the document name looked up next to the executable.
const DefaultFile = "config.xml"

// document mirrors the flat element layout.
type document struct {
	FTPServer       string `xml:"FTPServer" yaml:"FTPServer"`
	Username        string `xml:"Username" yaml:"Username"`
	Password        string `xml:"Password" yaml:"Password"`
	RemoteFilePath1 string `xml:"RemoteFilePath1" yaml:"RemoteFilePath1"`
	LocalFilePath1  string `xml:"LocalFilePath1" yaml:"LocalFilePath1"`
	RemoteFilePath2 string `xml:"RemoteFilePath2" yaml:"RemoteFilePath2"`
	LocalFilePath2  string `xml:"LocalFilePath2" yaml:"LocalFilePath2"`
	RemoteFilePath3 string `xml:"RemoteFilePath3" yaml:"RemoteFilePath3"`
	LocalFilePath3  string `xml:"LocalFilePath3" yaml:"LocalFilePath3"`

	// Optional.
	Protocol string `xml:"Protocol" yaml:"Protocol"`
	Port     string `xml:"Port" yaml:"Port"`
	Title1   string `xml:"Title1" yaml:"Title1"`
	Title2   string `xml:"Title2" yaml:"Title2"`
	Title3   string `xml:"Title3" yaml:"Title3"`
}

// requiredFields returns the required values in document order.
func (d *document) requiredFields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"FTPServer", d.FTPServer},
		{"Username", d.Username},
		{"Password", d.Password},
		{"RemoteFilePath1", d.RemoteFilePath1},
		{"LocalFilePath1", d.LocalFilePath1},
		{"RemoteFilePath2", d.RemoteFilePath2},
		{"LocalFilePath2", d.LocalFilePath2},
		{"RemoteFilePath3", d.RemoteFilePath3},
		{"LocalFilePath3", d.LocalFilePath3},
	}
}

// Resolver loads pipeline documents relative to a base directory.
type Resolver struct {
	// BaseDir anchors relative document paths. It is the executable's
	// directory when created with New.
	BaseDir string
}

// New returns a Resolver anchored at the running executable's directory.
func New() (*Resolver, error) {
	dir, err := ExecutableDir()
	if err != nil {
		return nil, err
	}
	return &Resolver{BaseDir: dir}, nil
}

// ExecutableDir returns the directory of the running executable with
// symlinks evaluated.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Path returns the absolute location of a document path.
func (r *Resolver) Path(path string) string {
	if path == "" {
		path = DefaultFile
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.BaseDir, path)
}

// Resolve reads and validates the document at path.
//
// Errors are *core.ConfigError: ErrUnreadable when the file cannot be
// opened, ErrMalformed when it does not parse, ErrMissingField naming the
// first absent or empty required element.
func (r *Resolver) Resolve(path string) (*core.Configuration, error) {
	full := r.Path(path)

	f, err := os.Open(full)
	if err != nil {
		return nil, &core.ConfigError{Kind: core.ErrUnreadable, Path: full, Detail: err.Error()}
	}
	defer f.Close()

	doc, err := decode(f, full)
	if err != nil {
		return nil, err
	}
	return build(doc, full)
}

func decode(r io.Reader, path string) (*document, error) {
	var doc document

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, core.Malformed(path, "empty document")
			}
			return nil, core.Malformed(path, err.Error())
		}
	default:
		if err := xml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, core.Malformed(path, "empty document")
			}
			return nil, core.Malformed(path, err.Error())
		}
	}
	return &doc, nil
}

func build(doc *document, path string) (*core.Configuration, error) {
	for _, f := range doc.requiredFields() {
		if strings.TrimSpace(f.value) == "" {
			return nil, core.MissingField(path, f.name)
		}
	}

	proto := core.Protocol(strings.ToLower(strings.TrimSpace(doc.Protocol)))
	switch proto {
	case "":
		proto = core.ProtocolFTP
	case core.ProtocolFTP, core.ProtocolSSH:
	default:
		return nil, core.Malformed(path, fmt.Sprintf("Protocol %q: want ftp or ssh", doc.Protocol))
	}

	host, port, err := splitServer(strings.TrimSpace(doc.FTPServer), strings.TrimSpace(doc.Port), proto)
	if err != nil {
		return nil, core.Malformed(path, err.Error())
	}

	cfg := &core.Configuration{
		Source:   path,
		Server:   host,
		Port:     port,
		Protocol: proto,
		Username: strings.TrimSpace(doc.Username),
		Password: doc.Password,
	}

	dir := filepath.Dir(path)
	pairs := [core.EntryCount]struct{ remote, local, title string }{
		{doc.RemoteFilePath1, doc.LocalFilePath1, doc.Title1},
		{doc.RemoteFilePath2, doc.LocalFilePath2, doc.Title2},
		{doc.RemoteFilePath3, doc.LocalFilePath3, doc.Title3},
	}
	for i, p := range pairs {
		local := strings.TrimSpace(p.local)
		if !filepath.IsAbs(local) {
			local = filepath.Join(dir, local)
		}
		cfg.Datasets[i] = core.DatasetEntry{
			Index:      i + 1,
			Kind:       core.KindForEntry(i + 1),
			Title:      strings.TrimSpace(p.title),
			RemotePath: strings.TrimSpace(p.remote),
			LocalPath:  local,
		}
	}

	return cfg, nil
}

// splitServer separates an optional ":port" suffix from the server.
// An explicit Port element wins over the suffix.
func splitServer(server, portText string, proto core.Protocol) (string, int, error) {
	host := server
	port := proto.DefaultPort()

	if h, p, err := net.SplitHostPort(server); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("FTPServer %q: invalid port", server)
		}
		host, port = h, n
	}

	if portText != "" {
		n, err := strconv.Atoi(portText)
		if err != nil {
			return "", 0, fmt.Errorf("Port %q: not a number", portText)
		}
		port = n
	}

	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return host, port, nil
}
