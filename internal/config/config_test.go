package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTP.Addr != ":3000" {
		t.Errorf("unexpected addr %q", c.HTTP.Addr)
	}
	if c.Presence.GracePeriod != 2*time.Second {
		t.Errorf("unexpected grace period %s", c.Presence.GracePeriod)
	}
	if c.Signaling.MaxMessageBytes != 64*1024 || c.Signaling.SendBuffer != 64 {
		t.Errorf("unexpected signaling defaults %+v", c.Signaling)
	}
	if len(c.Users) != 3 || c.Users[0].Username != "user1" || c.Users[0].Role != "Technician" {
		t.Errorf("unexpected users %+v", c.Users)
	}
	if !c.Monitoring.Enabled {
		t.Error("monitoring should default to enabled")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "relay.yaml")
	yaml := `
http:
  addr: ":4000"
presence:
  grace_period: 5s
log:
  level: warn
`
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELAY_PRESENCE_GRACE_PERIOD", "7s")

	c, err := Load([]string{"--config", file, "--level", "debug"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTP.Addr != ":4000" {
		t.Errorf("file should set addr, got %q", c.HTTP.Addr)
	}
	if c.Presence.GracePeriod != 7*time.Second {
		t.Errorf("env should override file, got %s", c.Presence.GracePeriod)
	}
	if c.Log.Level != "debug" {
		t.Errorf("flag should override file, got %q", c.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	c, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Log.Format = "xml"
	c.Presence.GracePeriod = 0
	c.Signaling.PingInterval = c.Signaling.PongTimeout
	c.Users = append(c.Users, User{Username: "user1", Password: "x", Role: "Admin"})

	err = c.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"log.format", "presence.grace_period", "signaling.ping_interval", "duplicate username", "unknown role"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %q", want, msg)
		}
	}
}
