package internal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/identity"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Watch.Debounce)
	}
	if cfg.Watch.CatchUp {
		t.Error("catch-up should default to off")
	}
}

func TestConfig_ErrorsWrapConfiguration(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Wiki.Path = ""
	err := cfg.Validate()
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestIdentityConfig(t *testing.T) {
	cfg := IdentityConfig{Scheme: "sequential"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown scheme should fail")
	}

	cfg = IdentityConfig{Scheme: identity.SchemeTimestamp}
	if err := cfg.Validate(); err == nil {
		t.Error("timestamp scheme without format should fail")
	}

	cfg = IdentityConfig{Scheme: identity.SchemeTimestamp, TimestampFormat: "20060102"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("timestamp scheme with format: %v", err)
	}
	gen, err := cfg.Generator()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gen.(identity.Timestamp); !ok {
		t.Errorf("generator = %T, want identity.Timestamp", gen)
	}
}

func TestConfig_LegacyKeys(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.WikiLocation = "/notes/wiki"
	cfg.DateFormat = "%Y%m%d%H%M"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Wiki.Path != "/notes/wiki" {
		t.Errorf("wiki path = %q", cfg.Wiki.Path)
	}
	if cfg.Identity.Scheme != identity.SchemeTimestamp || cfg.Identity.TimestampFormat != "200601021504" {
		t.Errorf("identity = %+v", cfg.Identity)
	}
}

func TestConfig_NegativeValuesRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watch.Debounce = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative debounce should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Index.Workers = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative workers should fail")
	}
}

func TestWatchConfig_Options(t *testing.T) {
	cfg := WatchConfig{Debounce: time.Second, CatchUp: true}
	opts := cfg.Options()
	if opts.Debounce != time.Second || !opts.CatchUp {
		t.Errorf("options = %+v", opts)
	}
}
