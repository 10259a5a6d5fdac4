package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_AttachesServiceFields(t *testing.T) {
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	Reset()

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Output: &buf, Service: "auth-api", Version: "1.2.3"})
	log.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry["service"] != "auth-api" || entry["version"] != "1.2.3" {
		t.Errorf("missing service fields: %v", entry)
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestInit_OnlyFirstCallWins(t *testing.T) {
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	Reset()

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	Init(Options{Output: &second})
	l := Get()
	l.Info().Msg("x")

	if first.Len() == 0 || second.Len() != 0 {
		t.Errorf("expected output only on the first writer")
	}
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Get()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
