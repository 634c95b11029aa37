package server

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"compssr/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("serve")

	root := cmd.Args().Get(0)
	if len(root) == 0 {
		root = env.Cfg.Server.Root
	}
	if root, err = filepath.Abs(root); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many roots", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	addr := cmd.String("listen")
	if len(addr) == 0 {
		addr = env.Cfg.Server.Listen
	}

	if err := env.BuildRenderer(); err != nil {
		return err
	}

	opts := []Option{WithLogger(env.Log)}
	if env.Cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, WithMetrics(reg))
	}

	srv, err := New(env.Renderer, root, opts...)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr)
}
