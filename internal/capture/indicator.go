package capture

import (
	"log/slog"
	"time"
)

// Indicator is the transient "extracting" signal shown while a page is
// read.
type Indicator interface {
	Show(url string)
	Hide(url string, err error)
}

// LogIndicator reports extraction progress as structured log lines.
type LogIndicator struct {
	log     *slog.Logger
	started time.Time
}

// NewLogIndicator returns an Indicator that writes to log.
func NewLogIndicator(log *slog.Logger) *LogIndicator {
	return &LogIndicator{log: log}
}

func (i *LogIndicator) Show(url string) {
	i.started = time.Now()
	i.log.Info("extracting job data", "url", url)
}

func (i *LogIndicator) Hide(url string, err error) {
	elapsed := time.Since(i.started).Round(time.Millisecond)
	if err != nil {
		i.log.Warn("extraction failed", "url", url, "elapsed", elapsed, "err", err)
		return
	}
	i.log.Info("extraction finished", "url", url, "elapsed", elapsed)
}
