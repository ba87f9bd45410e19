package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	enriched.Info("does not panic")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "text-embedding-004").Info("embed")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field to be gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "text-embedding-004" {
		t.Fatalf("unexpected model field %q", ctx[FieldModel])
	}
}

func TestWithRequestSkipsEmptyValues(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithRequest(zap.New(core), "req-1", "", "prof-7").Info("match")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldRequest] != "req-1" || ctx[FieldSubject] != "prof-7" {
		t.Fatalf("unexpected context: %v", ctx)
	}
	if _, ok := ctx[FieldDirection]; ok {
		t.Fatalf("did not expect empty direction field")
	}
}

func TestWithCandidate(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	WithCandidate(zap.New(core), "job-1").Info("scored")
	WithCandidate(zap.New(core), " ").Info("skipped")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()[FieldCandidate]; got != "job-1" {
		t.Fatalf("unexpected candidate field: %v", got)
	}
	if _, ok := entries[1].ContextMap()[FieldCandidate]; ok {
		t.Fatal("blank candidate id must not be logged")
	}
}
