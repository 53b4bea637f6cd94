package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCommand,
				Kind:   KindNativeCommand,
				Path:   []string{"InsertOne"},
				Detail: "duplicate key",
				Code:   11000,
			},
			contains: []string{"[command]", "native_command", "InsertOne", "duplicate key", "code 11000"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDispatch,
				Kind:  KindNotInitialized,
			},
			contains: []string{"[dispatch]", "not_initialized"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindPluginLoad,
				Detail: "load /tmp/x.so",
				Cause:  errors.New("bad ELF header"),
			},
			contains: []string{"[load]", "plugin_load", "/tmp/x.so", "caused by", "bad ELF header"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Download("mongo_engine", "https://example.invalid/x.so", 0, cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := SourceMissing("mongo_engine", "/nope")

	if !errors.Is(err, ErrSourceMissing) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, ErrDownload) {
		t.Error("Is should not match different kind")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindSourceMissing}) {
		t.Error("Is should not match different phase")
	}

	wrapped := fmt.Errorf("resolve: %w", err)
	if !errors.Is(wrapped, ErrSourceMissing) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestIsKind(t *testing.T) {
	inner := NativeCommand("Find", "cursor not found", 43)
	outer := Wrap(PhaseDecode, KindInvalidData, inner, "decode find")

	if !IsKind(outer, KindInvalidData) {
		t.Error("IsKind should match the outer kind")
	}
	if !IsKind(outer, KindNativeCommand) {
		t.Error("IsKind should match a kind in the cause chain")
	}
	if IsKind(outer, KindDownload) {
		t.Error("IsKind matched an absent kind")
	}
	if IsKind(errors.New("plain"), KindDownload) {
		t.Error("IsKind matched a plain error")
	}
	if IsKind(nil, KindDownload) {
		t.Error("IsKind matched nil")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindInvalidData).
		Path("count", "data").
		Value("abc").
		Code(2).
		Cause(cause).
		Detail("expected %s, got %s", "number", "string").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindInvalidData {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
	}
	if len(err.Path) != 2 || err.Path[0] != "count" || err.Path[1] != "data" {
		t.Errorf("Path = %v, want [count data]", err.Path)
	}
	if err.Value != "abc" {
		t.Errorf("Value = %v, want abc", err.Value)
	}
	if err.Code != 2 {
		t.Errorf("Code = %d, want 2", err.Code)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected number, got string" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		target *Error
	}{
		{"UnsupportedPlatform", UnsupportedPlatform("e", "plan9"), ErrUnsupportedPlatform},
		{"SourceMissing", SourceMissing("e", "/x"), ErrSourceMissing},
		{"Download", Download("e", "http://x", 404, nil), ErrDownload},
		{"PluginLoad", PluginLoad("/x.so", errors.New("boom")), ErrPluginLoad},
		{"NotInitialized", NotInitialized("module"), ErrNotInitialized},
		{"InvalidIdentifier", InvalidIdentifier("xyz"), ErrInvalidIdentifier},
		{"NativeCommand", NativeCommand("Count", "boom", 0), ErrNativeCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("%v does not match sentinel %v", tt.err, tt.target)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}

	if d := Download("e", "http://x", 404, nil); !strings.Contains(d.Error(), "status 404") {
		t.Errorf("Download message missing status: %q", d.Error())
	}
}
