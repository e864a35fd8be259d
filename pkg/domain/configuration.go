package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Configuration is an immutable mapping from ConfigPath to value.
// It is the payload of a composite Command.
type Configuration struct {
	values map[ConfigPath]string
	order  []ConfigPath // insertion order, for diagnostics
}

// EmptyConfiguration has no entries.
var EmptyConfiguration = Configuration{}

// ConfigurationBuilder accumulates entries for a Configuration.
// Adding a path twice replaces its value but keeps its first position.
type ConfigurationBuilder struct {
	values map[ConfigPath]string
	order  []ConfigPath
}

// NewConfigurationBuilder creates an empty builder.
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{values: make(map[ConfigPath]string)}
}

// WithPath adds an entry.
func (b *ConfigurationBuilder) WithPath(path ConfigPath, value string) *ConfigurationBuilder {
	if _, ok := b.values[path]; !ok {
		b.order = append(b.order, path)
	}
	b.values[path] = value
	return b
}

// WithConfiguration parses key and adds an entry.
func (b *ConfigurationBuilder) WithConfiguration(key, value string) (*ConfigurationBuilder, error) {
	path, err := ParseConfigPath(key)
	if err != nil {
		return b, err
	}
	if path.IsEmpty() {
		return b, fmt.Errorf("%w: empty key", ErrInvalidConfigPath)
	}
	return b.WithPath(path, value), nil
}

// Build returns the Configuration. The builder can keep being used; later
// changes do not affect configurations already built.
func (b *ConfigurationBuilder) Build() Configuration {
	values := make(map[ConfigPath]string, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	return Configuration{values: values, order: slices.Clone(b.order)}
}

// NewConfiguration builds a Configuration from textual keys. Keys are
// inserted in sorted order, since map iteration order is random.
func NewConfiguration(entries map[string]string) (Configuration, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	b := NewConfigurationBuilder()
	for _, k := range keys {
		if _, err := b.WithConfiguration(k, entries[k]); err != nil {
			return EmptyConfiguration, err
		}
	}
	return b.Build(), nil
}

// IsEmpty reports whether c has no entries.
func (c Configuration) IsEmpty() bool {
	return len(c.order) == 0
}

// Len returns the number of entries.
func (c Configuration) Len() int {
	return len(c.order)
}

// Keys returns every path in insertion order.
func (c Configuration) Keys() []ConfigPath {
	return slices.Clone(c.order)
}

// Value returns the value stored at path.
func (c Configuration) Value(path ConfigPath) (string, bool) {
	v, ok := c.values[path]
	return v, ok
}

// SubConfiguration returns the entries located at path or below it.
// Paths are kept as they are. The result is empty, never an error, when
// nothing lives under path.
func (c Configuration) SubConfiguration(path ConfigPath) Configuration {
	if path.IsEmpty() {
		return c
	}
	var sub Configuration
	for _, k := range c.order {
		if !path.Covers(k) {
			continue
		}
		if sub.values == nil {
			sub.values = make(map[ConfigPath]string)
		}
		sub.values[k] = c.values[k]
		sub.order = append(sub.order, k)
	}
	return sub
}

// Equal reports whether both configurations hold the same entries,
// regardless of insertion order.
func (c Configuration) Equal(other Configuration) bool {
	if len(c.order) != len(other.order) {
		return false
	}
	for k, v := range c.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// ToMap returns the entries keyed by path text.
func (c Configuration) ToMap() map[string]string {
	m := make(map[string]string, len(c.order))
	for _, k := range c.order {
		m[k.String()] = c.values[k]
	}
	return m
}

func (c Configuration) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range c.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.String())
		sb.WriteByte('=')
		sb.WriteString(c.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// ConfigPathNavigator walks the path tree of a Configuration one level at a time.
type ConfigPathNavigator struct {
	config Configuration
}

// NewConfigPathNavigator creates a navigator over config.
func NewConfigPathNavigator(config Configuration) ConfigPathNavigator {
	return ConfigPathNavigator{config: config}
}

// ChildPaths returns, in sorted order, the immediate children of parent
// that lead to at least one entry of the configuration.
func (n ConfigPathNavigator) ChildPaths(parent ConfigPath) []ConfigPath {
	seen := make(map[ConfigPath]struct{})
	var children []ConfigPath
	for _, k := range n.config.order {
		child, ok := parent.ChildToward(k)
		if !ok {
			continue
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		children = append(children, child)
	}
	slices.SortFunc(children, ConfigPath.Compare)
	return children
}
