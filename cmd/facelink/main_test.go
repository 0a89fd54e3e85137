package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/facelink/internal/config"
)

func TestFlagDefaults(t *testing.T) {
	if *port != 11111 {
		t.Errorf("expected default port 11111, got %d", *port)
	}
	if *listen != config.DefaultDebugListen {
		t.Errorf("expected default listen %q, got %q", config.DefaultDebugListen, *listen)
	}
	if *grpcListen != "" || *forward != "" {
		t.Error("expected gRPC and forwarding off by default")
	}
	if *noEye || *noLip || *smooth {
		t.Error("expected boolean flags to default to false")
	}
}

func TestApplyFlags_OnlyExplicit(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("port", config.DefaultPort, "")
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg := config.EmptyConfig()
	applyFlags(fs, cfg)
	if cfg.Port != nil {
		t.Errorf("unset flag must not override config, got %v", *cfg.Port)
	}
}

func TestApplyFlags_Overrides(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	// Mirror the real flags onto a private set so Visit sees them as set.
	flag.VisitAll(func(f *flag.Flag) { fs.Var(f.Value, f.Name, f.Usage) })
	t.Cleanup(func() {
		flag.VisitAll(func(f *flag.Flag) { f.Value.Set(f.DefValue) })
	})

	args := []string{"-port", "42069", "-no-lip", "-smooth", "-grpc-listen", "localhost:50051", "-vocabulary", "v2"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := config.EmptyConfig()
	applyFlags(fs, cfg)

	if cfg.GetPort() != 42069 {
		t.Errorf("GetPort() = %d, want 42069", cfg.GetPort())
	}
	if cfg.GetLipEnabled() {
		t.Error("expected lip disabled")
	}
	if !cfg.GetEyeEnabled() {
		t.Error("expected eye left at its default")
	}
	if !cfg.GetSmoothingEnabled() {
		t.Error("expected smoothing enabled")
	}
	if cfg.GetGRPCListen() != "localhost:50051" {
		t.Errorf("GetGRPCListen() = %q", cfg.GetGRPCListen())
	}
	if cfg.GetVocabularyName() != "v2" {
		t.Errorf("GetVocabularyName() = %q", cfg.GetVocabularyName())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyFlags_OverConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facelink.json")
	if err := os.WriteFile(path, []byte(`{"port": 42069, "eye_enabled": false}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flag.VisitAll(func(f *flag.Flag) { fs.Var(f.Value, f.Name, f.Usage) })
	t.Cleanup(func() {
		flag.VisitAll(func(f *flag.Flag) { f.Value.Set(f.DefValue) })
	})
	if err := fs.Parse([]string{"-port", "11111"}); err != nil {
		t.Fatal(err)
	}
	applyFlags(fs, cfg)

	if cfg.GetPort() != 11111 {
		t.Errorf("flag should override file port, got %d", cfg.GetPort())
	}
	if cfg.GetEyeEnabled() {
		t.Error("file value kept when flag not set")
	}
}
