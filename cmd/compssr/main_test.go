package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"

	"compssr/config"
	"compssr/state"
)

func TestOutputConfiguration(t *testing.T) {
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t)

	var err error
	if env.Cfg, err = config.LoadConfiguration(""); err != nil {
		t.Fatal(err)
	}
	env.Cfg.Renderer.MaxDepth = 7

	newCmd := func(out *bytes.Buffer) *cli.Command {
		return &cli.Command{
			Name:   "dumpconfig",
			Writer: out,
			Action: outputConfiguration,
			Flags:  []cli.Flag{&cli.BoolFlag{Name: "default"}},
		}
	}

	var out bytes.Buffer
	if err := newCmd(&out).Run(ctx, []string{"dumpconfig"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "max_depth: 7") {
		t.Errorf("actual configuration expected:\n%s", out.String())
	}

	out.Reset()
	if err := newCmd(&out).Run(ctx, []string{"dumpconfig", "--default"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "max_depth: 64") {
		t.Errorf("default configuration expected:\n%s", out.String())
	}

	fname := filepath.Join(t.TempDir(), "out.yaml")
	if err := newCmd(&bytes.Buffer{}).Run(ctx, []string{"dumpconfig", fname}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "max_depth: 7") {
		t.Errorf("file content:\n%s", data)
	}
}
