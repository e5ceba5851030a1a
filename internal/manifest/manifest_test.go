package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/capview/internal/core"
)

const validXML = `<?xml version="1.0" encoding="UTF-8"?>
<Config>
  <FTPServer>files.example.com</FTPServer>
  <Username>reports</Username>
  <Password>s3cret</Password>
  <RemoteFilePath1>/out/capacity.csv</RemoteFilePath1>
  <LocalFilePath1>data/capacity.csv</LocalFilePath1>
  <RemoteFilePath2>/out/hosts.csv</RemoteFilePath2>
  <LocalFilePath2>data/hosts.csv</LocalFilePath2>
  <RemoteFilePath3>/out/mac.csv</RemoteFilePath3>
  <LocalFilePath3>/var/lib/capview/mac.csv</LocalFilePath3>
</Config>
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestResolveValidXML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.xml", validXML)

	r := &Resolver{BaseDir: dir}
	cfg, err := r.Resolve("config.xml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.Server != "files.example.com" {
		t.Errorf("Server = %q, want %q", cfg.Server, "files.example.com")
	}
	if cfg.Port != 21 {
		t.Errorf("Port = %d, want 21", cfg.Port)
	}
	if cfg.Protocol != core.ProtocolFTP {
		t.Errorf("Protocol = %q, want ftp", cfg.Protocol)
	}
	if cfg.Username != "reports" || cfg.Password != "s3cret" {
		t.Errorf("credentials = %q/%q", cfg.Username, cfg.Password)
	}

	wantKinds := []core.DatasetKind{core.KindCapacity, core.KindInventory, core.KindCapacity}
	for i, d := range cfg.Datasets {
		if d.Index != i+1 {
			t.Errorf("Datasets[%d].Index = %d, want %d", i, d.Index, i+1)
		}
		if d.Kind != wantKinds[i] {
			t.Errorf("Datasets[%d].Kind = %q, want %q", i, d.Kind, wantKinds[i])
		}
	}

	if got, want := cfg.Datasets[0].LocalPath, filepath.Join(dir, "data", "capacity.csv"); got != want {
		t.Errorf("LocalPath1 = %q, want %q", got, want)
	}
	if got := cfg.Datasets[2].LocalPath; got != "/var/lib/capview/mac.csv" {
		t.Errorf("absolute LocalPath3 rewritten to %q", got)
	}
	if got := cfg.Datasets[1].RemotePath; got != "/out/hosts.csv" {
		t.Errorf("RemotePath2 = %q", got)
	}
}

func TestResolveRelativeToBaseDirNotWorkingDir(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "config.xml", validXML)

	other := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(other); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)

	r := &Resolver{BaseDir: base}
	cfg, err := r.Resolve("config.xml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Source != filepath.Join(base, "config.xml") {
		t.Errorf("Source = %q, want file under base dir", cfg.Source)
	}
}

func TestResolveMissingField(t *testing.T) {
	tests := []struct {
		name  string
		drop  string
		empty bool
	}{
		{name: "missing Username", drop: "Username"},
		{name: "empty Username", drop: "Username", empty: true},
		{name: "missing FTPServer", drop: "FTPServer"},
		{name: "missing LocalFilePath3", drop: "LocalFilePath3"},
		{name: "whitespace RemoteFilePath2", drop: "RemoteFilePath2", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []string
			for _, line := range strings.Split(validXML, "\n") {
				if strings.Contains(line, "<"+tt.drop+">") {
					if tt.empty {
						line = "  <" + tt.drop + ">   </" + tt.drop + ">"
					} else {
						continue
					}
				}
				lines = append(lines, line)
			}

			dir := t.TempDir()
			writeFile(t, dir, "config.xml", strings.Join(lines, "\n"))

			_, err := (&Resolver{BaseDir: dir}).Resolve("config.xml")
			if !errors.Is(err, core.ErrMissingField) {
				t.Fatalf("Resolve() error = %v, want ErrMissingField", err)
			}
			var ce *core.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not *core.ConfigError", err)
			}
			if ce.Field != tt.drop {
				t.Errorf("Field = %q, want %q", ce.Field, tt.drop)
			}
		})
	}
}

func TestResolveMalformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unclosed element", "config.xml", "<Config><FTPServer>x</Config>"},
		{"empty xml", "config.xml", ""},
		{"bad yaml", "config.yaml", "FTPServer: [unclosed"},
		{"bad protocol", "config.xml", strings.Replace(validXML, "<Username>", "<Protocol>gopher</Protocol><Username>", 1)},
		{"bad port", "config.xml", strings.Replace(validXML, "<Username>", "<Port>abc</Port><Username>", 1)},
		{"port out of range", "config.xml", strings.Replace(validXML, "<Username>", "<Port>70000</Port><Username>", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			_, err := (&Resolver{BaseDir: dir}).Resolve(tt.file)
			if !errors.Is(err, core.ErrMalformed) {
				t.Errorf("Resolve() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestResolveUnreadable(t *testing.T) {
	_, err := (&Resolver{BaseDir: t.TempDir()}).Resolve("absent.xml")
	if !errors.Is(err, core.ErrUnreadable) {
		t.Errorf("Resolve() error = %v, want ErrUnreadable", err)
	}
}

func TestResolveYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
FTPServer: files.example.com:2121
Username: reports
Password: s3cret
Protocol: ftp
RemoteFilePath1: /out/capacity.csv
LocalFilePath1: capacity.csv
RemoteFilePath2: /out/hosts.csv
LocalFilePath2: hosts.csv
RemoteFilePath3: /out/mac.csv
LocalFilePath3: mac.csv
Title3: MAC Drive
`)

	cfg, err := (&Resolver{BaseDir: dir}).Resolve("config.yaml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server != "files.example.com" || cfg.Port != 2121 {
		t.Errorf("server = %s:%d, want files.example.com:2121", cfg.Server, cfg.Port)
	}
	if cfg.Datasets[2].Title != "MAC Drive" {
		t.Errorf("Title3 = %q", cfg.Datasets[2].Title)
	}
}

func TestResolveSSHDefaultPort(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.xml", strings.Replace(validXML, "<Username>", "<Protocol>SSH</Protocol><Username>", 1))

	cfg, err := (&Resolver{BaseDir: dir}).Resolve("config.xml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Protocol != core.ProtocolSSH || cfg.Port != 22 {
		t.Errorf("protocol/port = %s/%d, want ssh/22", cfg.Protocol, cfg.Port)
	}
}

func TestConfigurationStringMasksPassword(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.xml", validXML)

	cfg, err := (&Resolver{BaseDir: dir}).Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "s3cret") {
		t.Errorf("String() leaks password: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked password", s)
	}
}
