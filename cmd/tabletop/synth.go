package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/testutils"
	"go.viam.com/tabletop/vision/perception"
)

// synthStep is one rendered frame of a scripted scene.
type synthStep struct {
	label string
	after time.Duration
	boxes []testutils.Box
}

// occlusionScript moves a red block, hides it for one frame and brings it
// back, next to a blue block that never moves.
func occlusionScript() []synthStep {
	blue := testutils.Box{X: -0.08, Y: 0.04, HalfSize: 0.02, Height: 0.04, Color: testutils.Blue}
	red := func(x, y float64) testutils.Box {
		return testutils.Box{X: x, Y: y, HalfSize: 0.02, Height: 0.02, Color: testutils.Red}
	}
	return []synthStep{
		{label: "appear", boxes: []testutils.Box{red(0.10, 0.00), blue}},
		{label: "move", after: 100 * time.Millisecond, boxes: []testutils.Box{red(0.12, 0.01), blue}},
		{label: "occluded", after: 100 * time.Millisecond, boxes: []testutils.Box{blue}},
		{label: "reappear", after: 2 * time.Second, boxes: []testutils.Box{red(0.13, 0.01), blue}},
	}
}

type synthOptions struct {
	noise   float64
	dropout float64
	seed    int64
}

// runSynth replays script through a pipeline on a mock clock and writes one
// table row per tracked object per frame.
func runSynth(ctx context.Context, cfg *config.Config, script []synthStep, opts synthOptions, out io.Writer, logger golog.Logger) error {
	base := testutils.DefaultScene()
	cfg.CameraExtrinsics = base.ExtrinsicsRowMajor()
	mockClock := clock.NewMock()
	p, err := perception.NewPipeline(cfg, nil, nil, mockClock, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warnw("failed to close pipeline", "error", err)
		}
	}()

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Step", "RepID", "X", "Y", "Z", "Color", "Lost"})
	for i, step := range script {
		mockClock.Add(step.after)
		scene := base
		scene.Boxes = step.boxes
		scene.Noise = opts.noise
		scene.Dropout = opts.dropout
		scene.Seed = opts.seed + int64(i)
		frame := scene.Render()
		frame.Timestamp = mockClock.Now()

		res, err := p.Process(ctx, frame)
		if err != nil {
			return err
		}
		lost := len(p.Tracker().Lost())
		ids := make([]int, 0, len(res.Objects))
		for id := range res.Objects {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		if len(ids) == 0 {
			tw.AppendRow(table.Row{i, step.label, "-", "", "", "", "", lost})
		}
		for _, id := range ids {
			obj := res.Objects[id]
			tw.AppendRow(table.Row{
				i, step.label, id,
				fmt.Sprintf("%.3f", obj.Center.X),
				fmt.Sprintf("%.3f", obj.Center.Y),
				fmt.Sprintf("%.3f", obj.Center.Z),
				fmt.Sprintf("#%02x%02x%02x", obj.AvgColor.R, obj.AvgColor.G, obj.AvgColor.B),
				lost,
			})
		}
	}
	fmt.Fprintln(out, tw.Render())

	stats := p.Stats()
	fmt.Fprintf(out, "session %s: %d frames, %d errors\n", p.SessionID(), stats.Processed, stats.Errors)
	return nil
}
