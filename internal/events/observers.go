package events

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/metrics"
)

// LoggingObserver writes every event to the log at debug level.
type LoggingObserver struct {
	logger *zap.Logger
}

// NewLoggingObserver creates a logging observer.
func NewLoggingObserver(logger *zap.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger.Named("events")}
}

func (o *LoggingObserver) OnEvent(event Event) error {
	o.logger.Debug("event", zap.String("type", event.Type), zap.Any("data", event.Data))
	return nil
}

func (o *LoggingObserver) GetName() string {
	return "LoggingObserver"
}

func (o *LoggingObserver) ShouldHandle(string) bool {
	return true
}

// MetricsObserver counts events into the session statistics.
type MetricsObserver struct {
	stats *metrics.SessionStats
}

// NewMetricsObserver creates an observer feeding stats.
func NewMetricsObserver(stats *metrics.SessionStats) *MetricsObserver {
	return &MetricsObserver{stats: stats}
}

func (o *MetricsObserver) OnEvent(event Event) error {
	switch event.Type {
	case CatchCaptured:
		o.stats.Captures.Add(1)
	case CatchEscaped:
		o.stats.Escapes.Add(1)
	case CatchVanished:
		o.stats.Vanishes.Add(1)
	case CatchAborted:
		o.stats.Aborts.Add(1)
	case CatchSoftbanRecovery, CatchCircuitBreaker:
		o.stats.SoftbanRecoveries.Add(1)
	case FortSpun:
		o.stats.Spins.Add(1)
	case SessionReconnect:
		o.stats.Reconnects.Add(1)
	case SessionFarmingChanged:
		if data, ok := Payload[FarmingEvent](event); ok {
			o.stats.SetFarming(data.Farming)
		}
	}
	return nil
}

func (o *MetricsObserver) GetName() string {
	return "MetricsObserver"
}

func (o *MetricsObserver) ShouldHandle(eventType string) bool {
	return strings.HasPrefix(eventType, "catch:") ||
		strings.HasPrefix(eventType, "fort:") ||
		strings.HasPrefix(eventType, "session:")
}
