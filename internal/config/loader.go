package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file
// changes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.load()
					if err != nil {
						// Keep serving the old config.
						continue
					}
					l.mu.Lock()
					l.current = cfg
					callbacks := make([]func(*Config), len(l.onChange))
					copy(callbacks, l.onChange)
					l.mu.Unlock()
					for _, fn := range callbacks {
						fn(cfg)
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero-valued tunables with the platform defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = 50
	}
	d := &cfg.Detectors
	if d.ContactLeak.ExcerptLen == 0 {
		d.ContactLeak.ExcerptLen = 140
	}
	if d.PriceOutlier.WindowDays == 0 {
		d.PriceOutlier.WindowDays = 30
	}
	if d.PriceOutlier.MinSamples == 0 {
		d.PriceOutlier.MinSamples = 10
	}
	if d.PriceOutlier.MaxSamples == 0 {
		d.PriceOutlier.MaxSamples = 100
	}
	if d.PriceOutlier.FlagDeviation == 0 {
		d.PriceOutlier.FlagDeviation = 2
	}
	if d.PriceOutlier.CriticalDeviation == 0 {
		d.PriceOutlier.CriticalDeviation = 3
	}
	if d.SanctionsMatch.DueWithinHours == 0 {
		d.SanctionsMatch.DueWithinHours = 24
	}
	if d.EmptyLeg.WindowHours == 0 {
		d.EmptyLeg.WindowHours = 72
	}
	if d.EmptyLeg.MaxRadiusNm == 0 {
		d.EmptyLeg.MaxRadiusNm = 300
	}
	if d.SlowResponse.SLAHours == 0 {
		d.SlowResponse.SLAHours = 24
	}
}
