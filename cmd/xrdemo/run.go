package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/app"
	"github.com/gogpu/xr/driver/sim"
	"github.com/gogpu/xr/host/headless"
	"github.com/gogpu/xr/internal/metrics"
)

// mirrorDivisor is the ratio between the eye target and the window.
const mirrorDivisor = 4

type runOptions struct {
	*rootOptions
	title string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame loop until the session ends",
		Long: `Run the frame loop until the runtime ends the session, the frame limit
is reached or the process is interrupted.

Example:
  xrdemo run --driver sim --frames 300
  xrdemo run --metrics-addr :9090 --bindings ./profiles.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), opts)
		},
	}

	cfg := root.cfg
	f := cmd.Flags()
	f.IntVar(&cfg.Frames, "frames", cfg.Frames, "stop after this many iterations (0 runs until the session ends)")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	f.BoolVar(&cfg.Panel, "panel", cfg.Panel, "show the input panel on the left hand")
	f.StringVar(&cfg.Cubemap, "cubemap", cfg.Cubemap, "image drawn behind the scene")
	f.StringVar(&opts.title, "title", "xrdemo", "window title")
	return cmd
}

func runLoop(parent context.Context, opts *runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := xr.Logger()
	if opts.cfg.Frames < 0 {
		return fmt.Errorf("--frames must not be negative, got %d", opts.cfg.Frames)
	}

	inst, err := opts.createInstance()
	if err != nil {
		return err
	}
	defer func() {
		if err := inst.Destroy(); err != nil {
			log.Error("xrdemo: destroy instance", "err", err)
		}
	}()

	ctxOpts, err := opts.contextOptions()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if opts.cfg.MetricsAddr != "" {
		srv := serveMetrics(opts.cfg.MetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w, h := inst.RenderTargetSize()
	win := headless.NewWindow(w/mirrorDivisor, h/mirrorDivisor,
		headless.WithTitle(opts.title),
		headless.WithTickInterval(opts.cfg.FramePeriod),
		headless.WithLogger(log),
	)
	defer win.Destroy()
	scene := headless.NewDebugScene()
	defer scene.Destroy()

	a, err := app.New[*sim.Image](inst, win, scene,
		app.WithLogger(log),
		app.WithMetrics(m),
		app.WithContextOptions(ctxOpts...),
		app.WithTitle(opts.title),
		app.WithMirrorDivisor(mirrorDivisor),
		app.WithMaxFrames(opts.cfg.Frames),
		app.WithPanel(opts.cfg.Panel),
		app.WithCubemap(opts.cfg.Cubemap),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Destroy(); err != nil {
			log.Error("xrdemo: shutdown", "err", err)
		}
	}()

	start := time.Now()
	err = a.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("xrdemo: interrupted")
		err = nil
	}
	log.Info("xrdemo: finished", "frames", a.Frames(), "fps", a.FPS(), "elapsed", time.Since(start).Round(time.Millisecond))
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			xr.Logger().Error("xrdemo: metrics server", "addr", addr, "err", err)
		}
	}()
	xr.Logger().Info("xrdemo: serving metrics", "addr", addr)
	return srv
}
