package domain

import (
	"fmt"
	"strings"
)

const (
	// SystemSeparator delimits major path segments (e.g. "X:S1").
	SystemSeparator = ':'
	// AttributeSeparator delimits an attribute segment (e.g. "A.val1").
	AttributeSeparator = '.'
)

// ConfigPath addresses a node in a Configuration tree.
//
// A path is a sequence of segments such as "X", ":S1", ":A", ".val1" for
// "X:S1:A.val1". Each separator opens a new tree level and belongs to the
// segment it precedes, so "X:S1:A" and "X:S1.A" are different children of
// "X:S1". ConfigPath is comparable and safe to use as a map key.
type ConfigPath struct {
	raw string
}

// EmptyPath is the root of every Configuration tree.
var EmptyPath = ConfigPath{}

// ParseConfigPath validates text and returns the corresponding path.
// The empty string yields EmptyPath.
func ParseConfigPath(text string) (ConfigPath, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyPath, nil
	}
	prevSep := true
	for i := 0; i < len(text); i++ {
		if isSeparator(text[i]) {
			if prevSep {
				return EmptyPath, fmt.Errorf("%w: empty segment at offset %d in %q", ErrInvalidConfigPath, i, text)
			}
			prevSep = true
			continue
		}
		prevSep = false
	}
	if prevSep {
		return EmptyPath, fmt.Errorf("%w: trailing separator in %q", ErrInvalidConfigPath, text)
	}
	return ConfigPath{raw: text}, nil
}

// MustParseConfigPath is like ParseConfigPath but panics on invalid input.
// Intended for literals and tests.
func MustParseConfigPath(text string) ConfigPath {
	p, err := ParseConfigPath(text)
	if err != nil {
		panic(err)
	}
	return p
}

func isSeparator(c byte) bool {
	return c == SystemSeparator || c == AttributeSeparator
}

// String returns the canonical text of the path.
func (p ConfigPath) String() string {
	return p.raw
}

// IsEmpty reports whether p is the root path.
func (p ConfigPath) IsEmpty() bool {
	return p.raw == ""
}

// Depth returns the number of segments in p. EmptyPath has depth 0.
func (p ConfigPath) Depth() int {
	if p.raw == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(p.raw); i++ {
		if isSeparator(p.raw[i]) {
			n++
		}
	}
	return n
}

// Segments returns the segments of p, each one carrying its leading
// separator except the first.
func (p ConfigPath) Segments() []string {
	if p.raw == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 1; i < len(p.raw); i++ {
		if isSeparator(p.raw[i]) {
			segs = append(segs, p.raw[start:i])
			start = i
		}
	}
	return append(segs, p.raw[start:])
}

// Name returns the last segment without its separator.
func (p ConfigPath) Name() string {
	if p.raw == "" {
		return ""
	}
	i := strings.LastIndexAny(p.raw, string([]byte{SystemSeparator, AttributeSeparator}))
	return p.raw[i+1:]
}

// Parent returns the path one level up. The parent of a single-segment path
// and of EmptyPath is EmptyPath.
func (p ConfigPath) Parent() ConfigPath {
	i := strings.LastIndexAny(p.raw, string([]byte{SystemSeparator, AttributeSeparator}))
	if i <= 0 {
		return EmptyPath
	}
	return ConfigPath{raw: p.raw[:i]}
}

// IsAncestorOf reports whether q strictly extends p's segment sequence.
// EmptyPath is an ancestor of every non-empty path.
func (p ConfigPath) IsAncestorOf(q ConfigPath) bool {
	if len(q.raw) <= len(p.raw) {
		return false
	}
	if p.raw == "" {
		return true
	}
	return strings.HasPrefix(q.raw, p.raw) && isSeparator(q.raw[len(p.raw)])
}

// IsDescendantOf reports whether p strictly extends q.
func (p ConfigPath) IsDescendantOf(q ConfigPath) bool {
	return q.IsAncestorOf(p)
}

// Covers reports whether q is p itself or one of its descendants.
func (p ConfigPath) Covers(q ConfigPath) bool {
	return p == q || p.IsAncestorOf(q)
}

// ChildToward returns the direct child of p that lies on the way to the
// descendant q. The second result is false when q does not descend from p.
func (p ConfigPath) ChildToward(q ConfigPath) (ConfigPath, bool) {
	if !p.IsAncestorOf(q) {
		return EmptyPath, false
	}
	start := len(p.raw)
	if start > 0 {
		start++ // skip the separator opening the child segment
	}
	for i := start; i < len(q.raw); i++ {
		if isSeparator(q.raw[i]) {
			return ConfigPath{raw: q.raw[:i]}, true
		}
	}
	return q, true
}

// Compare orders paths by their canonical text. It returns -1, 0 or +1.
func (p ConfigPath) Compare(q ConfigPath) int {
	return strings.Compare(p.raw, q.raw)
}

// MarshalText implements encoding.TextMarshaler.
func (p ConfigPath) MarshalText() ([]byte, error) {
	return []byte(p.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ConfigPath) UnmarshalText(text []byte) error {
	parsed, err := ParseConfigPath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
