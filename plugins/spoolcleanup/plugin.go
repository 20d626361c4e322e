// Package spoolcleanup bounds the size of the relay's capture spool.
// When enabled, it periodically removes the oldest capture files once the
// spool directory grows past a high watermark.
package spoolcleanup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/pkg/relay"
)

// Plugin removes old spool files. The newest file by name is the one the
// receiver is still appending to and is never removed.
type Plugin struct {
	mu sync.RWMutex

	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	runImmediately bool

	dir    string
	logger relay.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the spool cleanup plugin.
type Config struct {
	// CheckInterval is how often to measure the spool directory.
	// Default: 1 hour
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 256 MiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: three quarters of HighWatermark
	LowWatermark int64

	// RunImmediately runs a check on startup.
	// Default: true
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  time.Hour,
		HighWatermark:  256 << 20,
		LowWatermark:   192 << 20,
		RunImmediately: true,
	}
}

// New creates a spool cleanup plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 256 << 20
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark > cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark / 4 * 3
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "spoolcleanup"
}

// Initialize starts the cleanup loop.
func (p *Plugin) Initialize(ctx context.Context, cfg relay.PluginConfig) error {
	p.mu.Lock()
	p.dir = cfg.CaptureDir
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.dir == "" {
		p.logger.Warn("spool cleanup disabled: no capture directory configured")
		return nil
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("spool cleanup plugin initialized",
		ports.Int64("high_watermark", p.highWatermark),
		ports.Int64("low_watermark", p.lowWatermark),
	)

	if p.runImmediately {
		p.cleanupOnce(cleanupCtx)
	}

	p.wg.Add(1)
	go p.cleanupLoop(cleanupCtx)

	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupOnce(ctx)
		}
	}
}

// cleanupOnce performs a single check, removing the oldest files until the
// spool is at or below the low watermark.
func (p *Plugin) cleanupOnce(ctx context.Context) {
	p.mu.RLock()
	dir := p.dir
	p.mu.RUnlock()

	files, total, err := spoolFiles(dir)
	if err != nil {
		p.logger.Error("spool cleanup: list failed", ports.Err(err))
		return
	}
	if total <= p.highWatermark || len(files) < 2 {
		return
	}

	var removed int64
	count := 0
	for _, f := range files[:len(files)-1] {
		if ctx.Err() != nil {
			return
		}
		if total <= p.lowWatermark {
			break
		}
		if err := os.Remove(f.path); err != nil {
			p.logger.Error("spool cleanup: remove failed",
				ports.String("file", f.path),
				ports.Err(err))
			continue
		}
		total -= f.size
		removed += f.size
		count++
	}

	if removed > 0 {
		p.logger.Info("spool cleanup completed",
			ports.Int("files", count),
			ports.Int64("bytes_freed", removed),
		)
	}
}

type spoolFile struct {
	path string
	size int64
}

// spoolFiles lists the regular, non-hidden files of dir in name order
// along with their total size.
func spoolFiles(dir string) ([]spoolFile, int64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var files []spoolFile
	var total int64
	for _, e := range ents {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, 0, err
		}
		files = append(files, spoolFile{path: filepath.Join(dir, e.Name()), size: info.Size()})
		total += info.Size()
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, total, nil
}

// Ensure Plugin implements relay.Plugin.
var _ relay.Plugin = (*Plugin)(nil)
