package collector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/blocktune/blocktune/internal/classifier"
	"github.com/blocktune/blocktune/internal/collector/aggregator"
	"github.com/blocktune/blocktune/internal/metrics"
	"github.com/blocktune/blocktune/internal/policy"
	"github.com/blocktune/blocktune/pkg/logutil"
	"github.com/blocktune/blocktune/pkg/types"
)

// pollSlice bounds one wait on the event source. Shutdown latency is one
// slice plus at most one classification round trip.
const pollSlice = 100 * time.Millisecond

// ControlLoop drives the cycle for one device: aggregate a window, classify
// it, apply the policy, repeat until cancelled. Strictly sequential; the
// aggregate is owned by this loop alone.
type ControlLoop struct {
	source  types.EventSource
	cls     types.Classifier
	applier types.PolicyApplier
	mc      *metrics.Collector
	agg     *aggregator.WindowAggregate
	device  string
	window  time.Duration
}

func NewControlLoop(source types.EventSource, cls types.Classifier, applier types.PolicyApplier, mc *metrics.Collector, device string, window time.Duration) *ControlLoop {
	return &ControlLoop{
		source:  source,
		cls:     cls,
		applier: applier,
		mc:      mc,
		agg:     aggregator.New(types.JumpThresholdBytes),
		device:  device,
		window:  window,
	}
}

// Run cycles windows until ctx is cancelled or the event source shuts down.
// Classification and policy failures are window-local: logged, counted,
// and retried naturally by the next window.
func (cl *ControlLoop) Run(ctx context.Context) error {
	logger := logutil.GetLogger()
	windowSeconds := cl.window.Seconds()

	logger.Info("Control loop started",
		zap.String("device", cl.device),
		zap.Duration("window", cl.window))

	for {
		if ctx.Err() != nil {
			logger.Info("Control loop received cancellation signal")
			return nil
		}

		cl.agg.Reset()
		deadline := time.Now().Add(cl.window)

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 || ctx.Err() != nil {
				break
			}
			wait := pollSlice
			if remaining < wait {
				wait = remaining
			}
			err := cl.source.Poll(wait, cl.observe)
			if err != nil {
				if errors.Is(err, types.ErrSourceClosed) {
					logger.Info("Event source closed, stopping control loop")
					return err
				}
				logger.Error("Event poll error", zap.Error(err))
			}
		}
		if ctx.Err() != nil {
			logger.Info("Control loop received cancellation signal")
			return nil
		}

		features := cl.agg.Finalize(windowSeconds)
		cl.mc.Windows.Inc()

		class, err := cl.cls.Classify(ctx, features)
		if err != nil {
			cl.mc.Classifications.WithLabelValues(classifyOutcome(err)).Inc()
			logger.Error("Classification failed, abandoning window",
				append(featureFields(features), zap.Error(err))...)
			continue
		}
		cl.mc.Classifications.WithLabelValues(metrics.OutcomeOK).Inc()
		cl.mc.LastClass.Set(float64(class))

		if err := cl.applier.Apply(class); err != nil {
			cl.mc.PolicyWrites.WithLabelValues("error").Inc()
			logger.Warn("Policy write failed",
				zap.String("device", cl.device),
				zap.String("class", types.ClassName(class)),
				zap.Error(err))
			continue
		}
		cl.mc.PolicyWrites.WithLabelValues("ok").Inc()

		kb, _ := policy.ReadaheadForClass(class)
		logger.Info("Window applied",
			append(featureFields(features),
				zap.String("device", cl.device),
				zap.String("class", types.ClassName(class)),
				zap.Int("read_ahead_kb", kb))...)
	}
}

// observe runs on the capture delivery path and must stay cheap.
func (cl *ControlLoop) observe(ev types.BlockIOEvent) {
	if cl.agg.Accept(ev) {
		cl.mc.EventsAccepted.Inc()
	} else {
		cl.mc.EventsDiscarded.Inc()
	}
}

func classifyOutcome(err error) string {
	var timeout *classifier.TimeoutError
	var proto *classifier.ProtocolError
	switch {
	case errors.As(err, &timeout):
		return metrics.OutcomeTimeout
	case errors.As(err, &proto):
		return metrics.OutcomeProtocolError
	default:
		return metrics.OutcomeTransportError
	}
}

func featureFields(f types.FeatureVector) []zap.Field {
	return []zap.Field{
		zap.Float32("avg_distance_bytes", f[types.FeatureAvgDistance]),
		zap.Float32("jump_ratio", f[types.FeatureJumpRatio]),
		zap.Float32("avg_io_size_bytes", f[types.FeatureAvgIOSize]),
		zap.Float32("sequential_ratio", f[types.FeatureSeqRatio]),
		zap.Float32("iops", f[types.FeatureIOPS]),
	}
}
