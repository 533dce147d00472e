package main

import (
	"context"
	"testing"
)

func TestMainExecute(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	main()
}

func TestServeCmd_PreRun(t *testing.T) {
	if err := serveCmd.Flags().Set("host", "127.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if err := serveCmd.Flags().Set("port", "0"); err != nil {
		t.Fatal(err)
	}
	if err := serveCmd.Flags().Set("timeout", "5s"); err != nil {
		t.Fatal(err)
	}
	if err := serveCmd.Flags().Set("log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	serveCmd.PreRun(serveCmd, nil)
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 0 {
		t.Fatalf("flags not applied")
	}
	if cfg.Server.Timeout.String() != "5s" {
		t.Fatalf("timeout not applied: %v", cfg.Server.Timeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	serveCmd.SetContext(ctx)
	if err := serveCmd.RunE(serveCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServeCmd_InvalidLogLevel(t *testing.T) {
	old := cfg.Server.LogLevel
	defer func() { cfg.Server.LogLevel = old }()

	cfg.Server.LogLevel = "loud"
	serveCmd.SetContext(context.Background())
	if err := serveCmd.RunE(serveCmd, nil); err == nil {
		t.Fatal("expected error")
	}
}
