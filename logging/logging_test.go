package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("tabletop", false)
	test.That(t, logger, test.ShouldNotBeNil)
	test.That(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeFalse)

	debugLogger := NewLogger("tabletop", true)
	test.That(t, debugLogger.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeTrue)
}

func TestSub(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	parent := zap.New(core).Sugar().Named("pipeline")
	Sub(parent, "tracker").Debugw("resolved", "objects", 2)

	entries := logs.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "pipeline.tracker")
	test.That(t, entries[0].ContextMap()["objects"], test.ShouldEqual, int64(2))

	// nil parents get a no-op logger
	Sub(nil, "tracker").Info("dropped")
}
