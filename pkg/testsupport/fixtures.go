package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/loader"
	"github.com/goliatone/go-formrel/pkg/schema"
)

const (
	InterfaceForm = "network.interface"
	AlertAWSForm  = "system.alertservice.aws"
)

// MustBuiltin returns a copy of a built-in form schema.
func MustBuiltin(t *testing.T, id string) schema.Schema {
	t.Helper()

	store, err := loader.Builtin()
	if err != nil {
		t.Fatalf("load builtin forms: %v", err)
	}
	s, ok := store.Schema(id)
	if !ok {
		t.Fatalf("builtin form %q not found (have %v)", id, store.IDs())
	}
	return s
}

// MustSession opens a session over a built-in form with logging discarded.
func MustSession(t *testing.T, id string, options ...form.Option) *form.Session {
	t.Helper()

	opts := append([]form.Option{form.WithLogger(DiscardLogger())}, options...)
	sess, err := form.New(MustBuiltin(t, id), opts...)
	if err != nil {
		t.Fatalf("open session %q: %v", id, err)
	}
	return sess
}

// MustSetValue assigns a field value through its dotted address.
func MustSetValue(t *testing.T, sess *form.Session, address string, value any) {
	t.Helper()

	addr, err := form.ParseAddress(address)
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	if err := sess.SetValue(addr, value); err != nil {
		t.Fatalf("set %s: %v", address, err)
	}
}

// MustField returns a field state or fails the test.
func MustField(t *testing.T, sess *form.Session, address string) form.FieldState {
	t.Helper()

	addr, err := form.ParseAddress(address)
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	state, ok := sess.Field(addr)
	if !ok {
		t.Fatalf("field %s not found", address)
	}
	return state
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoadPayload reads a JSON payload fixture.
func LoadPayload(path string) (map[string]any, error) {
	if path == "" {
		return nil, errors.New("testsupport: payload path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal payload: %w", err)
	}
	return out, nil
}

// MustLoadPayload reads a JSON payload fixture or fails the test.
func MustLoadPayload(t *testing.T, path string) map[string]any {
	t.Helper()

	out, err := LoadPayload(path)
	if err != nil {
		t.Fatalf("load payload: %v", err)
	}
	return out
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
// Returns true if the golden was written.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
