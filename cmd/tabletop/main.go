// Package main is the tabletop command line tool. It validates pipeline
// configs and replays synthetic scenes through the pipeline.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/logging"
)

const (
	flagConfig  = "config"
	flagDebug   = "debug"
	flagNoise   = "noise"
	flagDropout = "dropout"
	flagSeed    = "seed"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger golog.Logger

	loadConfig := func(c *cli.Context) (*config.Config, error) {
		path := c.String(flagConfig)
		if path == "" {
			return config.Default(), nil
		}
		return config.Read(path, logger)
	}

	return &cli.App{
		Name:  "tabletop",
		Usage: "segment and track tabletop objects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load pipeline configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger = logging.NewLogger("tabletop", c.Bool(flagDebug))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "check a config file and print the effective parameters",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, configTable(cfg))
					return nil
				},
			},
			{
				Name:  "synth",
				Usage: "replay a synthetic occlusion scene through the pipeline",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagNoise, Usage: "depth noise standard deviation in meters"},
					&cli.Float64Flag{Name: flagDropout, Usage: "fraction of pixels with no sample"},
					&cli.Int64Flag{Name: flagSeed, Value: 1, Usage: "scene random seed"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					opts := synthOptions{
						noise:   c.Float64(flagNoise),
						dropout: c.Float64(flagDropout),
						seed:    c.Int64(flagSeed),
					}
					return runSynth(c.Context, cfg, occlusionScript(), opts, c.App.Writer, logger)
				},
			},
		},
	}
}

func configTable(cfg *config.Config) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Parameter", "Value"})
	tw.AppendRows([]table.Row{
		{"color_thresh_deg", cfg.ColorThreshDeg},
		{"distance_thresh_m", cfg.DistanceThreshM},
		{"min_object_size", cfg.MinObjectSize},
		{"ransac_thresh_m", cfg.RansacThreshM},
		{"ransac_percent", cfg.RansacPercent},
		{"ransac_iterations", cfg.RansacIterations},
		{"ransac_seed", cfg.RansacSeed},
		{"refine_floor", cfg.RefineFloor},
		{"max_height_m", cfg.MaxHeightM},
		{"max_history_sec", cfg.MaxHistorySec},
		{"max_travel_dist_m", cfg.MaxTravelDistM},
		{"max_color_change", cfg.MaxColorChange},
		{"dark_threshold", cfg.DarkThreshold},
		{"camera_extrinsics", cfg.CameraExtrinsics},
	})
	return tw.Render()
}
