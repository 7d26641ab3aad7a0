package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver/sim"
	"github.com/gogpu/xr/internal/config"
)

// rootOptions holds the flags shared by every command. They start from the
// environment configuration.
type rootOptions struct {
	cfg     *config.Config
	loadErr error
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{cfg: config.Default()}
	if cfg, err := config.Load(); err != nil {
		opts.loadErr = err
	} else {
		opts.cfg = cfg
	}

	cmd := &cobra.Command{
		Use:   "xrdemo",
		Short: "Stereo frame loop demo",
		Long:  "Drive an xr runtime session, render a debug scene and an input panel, and mirror the result.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.loadErr != nil {
				return opts.loadErr
			}
			level, err := config.ParseLevel(opts.cfg.LogLevel)
			if err != nil {
				return err
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			xr.SetLogger(slog.New(handler))
			return nil
		},
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfg.Driver, "driver", opts.cfg.Driver, fmt.Sprintf("runtime driver (%v); empty picks the best available", xr.Drivers()))
	f.StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "log level (debug|info|warn|error)")
	f.DurationVar(&opts.cfg.FramePeriod, "frame-period", opts.cfg.FramePeriod, "frame period of the simulated runtime")
	f.BoolVar(&opts.cfg.Debug, "debug", opts.cfg.Debug, "forward runtime diagnostics to the log")
	f.StringVar(&opts.cfg.Bindings, "bindings", opts.cfg.Bindings, "YAML file with extra interaction profiles")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))
	return cmd
}

// instanceOptions translates the shared flags into instance options.
func (o *rootOptions) instanceOptions() []xr.InstanceOption {
	opts := []xr.InstanceOption{
		xr.WithApplicationName("xrdemo"),
		xr.WithDebugMessenger(o.cfg.Debug),
	}
	switch o.cfg.Driver {
	case sim.Name:
		opts = append(opts, xr.WithLoader(sim.New(sim.WithFramePeriod(o.cfg.FramePeriod))))
	case "":
	default:
		opts = append(opts, xr.WithDriver(o.cfg.Driver))
	}
	return opts
}

// contextOptions loads the extra binding profiles, if any.
func (o *rootOptions) contextOptions() ([]xr.ContextOption, error) {
	if o.cfg.Bindings == "" {
		return nil, nil
	}
	profiles, err := xr.LoadBindingProfilesFile(o.cfg.Bindings)
	if err != nil {
		return nil, err
	}
	xr.Logger().Info("xrdemo: extra binding profiles loaded", "path", o.cfg.Bindings, "profiles", len(profiles))
	return []xr.ContextOption{
		xr.WithBinderOptions(xr.WithExtraBindingProfiles(profiles...)),
	}, nil
}

func (o *rootOptions) createInstance() (*xr.Instance, error) {
	start := time.Now()
	inst, err := xr.Create(o.instanceOptions()...)
	if err != nil {
		return nil, err
	}
	xr.Logger().Debug("xrdemo: instance created", "elapsed", time.Since(start), "runtime", inst.Properties().RuntimeName)
	return inst, nil
}

// exitCode maps startup failures to a distinct status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if xr.IsSetup(err) {
		return 2
	}
	return 1
}
