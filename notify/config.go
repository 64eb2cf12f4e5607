package notify

import "fmt"

// Config lists the sinks to build a Notifier from.
type Config struct {
	Sinks []SinkConfig `json:"sinks,omitempty"`
}

// DefaultConfig returns a single log sink receiving every kind.
func DefaultConfig() Config {
	return Config{Sinks: []SinkConfig{{Kind: "log", Name: "default-log"}}}
}

// Merge replaces c's sink list with source's, if non-empty.
func (c *Config) Merge(source *Config) {
	if len(source.Sinks) > 0 {
		c.Sinks = source.Sinks
	}
}

// Build constructs a Notifier from Config, resolving each SinkConfig
// through the sink registry.
func Build(cfg Config) (*Notifier, error) {
	sinks := make([]Sink, 0, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		sink, err := BuildSink(sc)
		if err != nil {
			return nil, fmt.Errorf("notify: build sink %q: %w", sc.Name, err)
		}
		sinks = append(sinks, sink)
	}
	return New(sinks, nil), nil
}
