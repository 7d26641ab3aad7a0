package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
)

// validFormats lists the output formats of the info command.
var validFormats = []string{"text", "yaml"}

type infoOptions struct {
	*rootOptions
	format string
}

func newInfoCommand(root *rootOptions) *cobra.Command {
	opts := &infoOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print what the runtime reports",
		Long: `Create an instance and print the runtime, the system, the stereo view
configuration and the extensions.

Example:
  xrdemo info
  xrdemo info --driver sim --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			inst, err := opts.createInstance()
			if err != nil {
				return err
			}
			defer inst.Destroy()
			return writeInfo(cmd.OutOrStdout(), inst.Info(), opts.format)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|yaml)")
	return cmd
}

// infoReport is the serialized form of xr.Info.
type infoReport struct {
	Runtime      string            `yaml:"runtime"`
	Version      string            `yaml:"version"`
	System       string            `yaml:"system"`
	VendorID     uint32            `yaml:"vendor_id"`
	MaxLayers    uint32            `yaml:"max_layers"`
	Tracking     string            `yaml:"tracking"`
	RenderTarget string            `yaml:"render_target"`
	Views        []string          `yaml:"views"`
	Extensions   map[string]uint32 `yaml:"extensions"`
	Enabled      []string          `yaml:"enabled"`
}

func newInfoReport(info xr.Info) infoReport {
	v := info.Runtime.RuntimeVersion
	r := infoReport{
		Runtime:      info.Runtime.RuntimeName,
		Version:      fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()),
		System:       info.System.SystemName,
		VendorID:     info.System.VendorID,
		MaxLayers:    info.System.MaxLayerCount,
		Tracking:     tracking(info.System),
		RenderTarget: fmt.Sprintf("%dx%d", info.RenderTarget.Width, info.RenderTarget.Height),
		Extensions:   make(map[string]uint32, len(info.Available)),
		Enabled:      info.Enabled,
	}
	for i, view := range info.Views {
		r.Views = append(r.Views, fmt.Sprintf("eye %d: %dx%d (max %dx%d, %d samples)", i,
			view.RecommendedImageRectWidth, view.RecommendedImageRectHeight,
			view.MaxImageRectWidth, view.MaxImageRectHeight, view.RecommendedSwapchainSampleCount))
	}
	for _, ext := range info.Available {
		r.Extensions[ext.Name] = ext.Version
	}
	return r
}

func tracking(sys driver.SystemProperties) string {
	switch {
	case sys.OrientationTracking && sys.PositionTracking:
		return "6dof"
	case sys.OrientationTracking:
		return "3dof"
	default:
		return "none"
	}
}

func writeInfo(w io.Writer, info xr.Info, format string) error {
	r := newInfoReport(info)
	if format == "yaml" {
		out, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Runtime:\t%s %s\n", r.Runtime, r.Version)
	fmt.Fprintf(tw, "System:\t%s (vendor %#x)\n", r.System, r.VendorID)
	fmt.Fprintf(tw, "Tracking:\t%s\n", r.Tracking)
	fmt.Fprintf(tw, "Max layers:\t%d\n", r.MaxLayers)
	fmt.Fprintf(tw, "Render target:\t%s\n", r.RenderTarget)
	for _, v := range r.Views {
		fmt.Fprintf(tw, "View:\t%s\n", v)
	}
	for _, ext := range info.Available {
		mark := ""
		if slices.Contains(r.Enabled, ext.Name) {
			mark = " (enabled)"
		}
		fmt.Fprintf(tw, "Extension:\t%s v%d%s\n", ext.Name, ext.Version, mark)
	}
	return tw.Flush()
}
