package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petal-go/petal/internal/errors"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := writeConfig(t, `{}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Addr() != "localhost:3000" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.TemplatePath() != filepath.Join(dir, DefaultTemplate) {
		t.Errorf("template path = %s", cfg.TemplatePath())
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := writeConfig(t, `{
		"name": "demo",
		"template": "app.html",
		"server": {"host": "0.0.0.0", "port": 8080},
		"session": {"readTimeout": "90s", "maxEventQueue": 16},
		"limits": {"maxSessions": 10, "idleTimeout": "1m"},
		"log": {"level": "debug", "format": "json"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %s", cfg.Addr())
	}

	sc := cfg.SessionConfig()
	if sc.ReadTimeout != 90*time.Second {
		t.Errorf("read timeout = %v", sc.ReadTimeout)
	}
	if sc.MaxEventQueue != 16 {
		t.Errorf("event queue = %d", sc.MaxEventQueue)
	}
	// Unset fields keep defaults.
	if sc.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat = %v", sc.HeartbeatInterval)
	}

	mc := cfg.ManagerConfig()
	if mc.MaxSessions != 10 || mc.IdleTimeout != time.Minute {
		t.Errorf("manager config %+v", mc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())

	var perr *errors.Error
	if !stderrors.As(err, &perr) || perr.Code != "E101" {
		t.Errorf("err = %v, want E101", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := writeConfig(t, `{not json`)

	_, err := Load(dir)
	var perr *errors.Error
	if !stderrors.As(err, &perr) || perr.Code != "E102" {
		t.Errorf("err = %v, want E102", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []string{
		`{"server": {"port": 99999}}`,
		`{"template": ""}`,
		`{"session": {"readTimeout": "soon"}}`,
		`{"log": {"level": "verbose"}}`,
		`{"log": {"format": "xml"}}`,
	}

	for _, contents := range cases {
		dir := writeConfig(t, contents)
		_, err := Load(dir)

		var perr *errors.Error
		if !stderrors.As(err, &perr) || perr.Code != "E103" {
			t.Errorf("%s: err = %v, want E103", contents, err)
		}
	}
}
