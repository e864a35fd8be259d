// Package loam keeps named command presets in a Loam repository.
//
// Each document is one preset: its front matter holds the command and its
// body a free-form description for operators.
//
//	---
//	sequence_command: APPLY
//	activity: START
//	timeout: 10s
//	configuration:
//	  "X:S1:A.val1": xa1
//	---
//	Moves the first subsystem into observing position.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/gmp/pkg/config"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/loam"
)

// PresetMetadata is the front matter of a preset document.
type PresetMetadata struct {
	ID              string         `json:"id" mapstructure:"id"`
	SequenceCommand string         `json:"sequence_command" mapstructure:"sequence_command"`
	Activity        string         `json:"activity" mapstructure:"activity"`
	Configuration   map[string]any `json:"configuration" mapstructure:"configuration"`
	Timeout         string         `json:"timeout,omitempty" mapstructure:"timeout"`
}

// Preset is a named, ready to submit command.
type Preset struct {
	Name        string
	Description string
	Command     domain.Command
	// Timeout is zero when the document sets none.
	Timeout time.Duration
}

// Library reads presets from a Loam repository.
type Library struct {
	Repo *loam.TypedRepository[PresetMetadata]
}

// New creates a Library over repo.
func New(repo *loam.TypedRepository[PresetMetadata]) *Library {
	return &Library{Repo: repo}
}

// Open opens the presets stored under dir, read-only.
func Open(dir string) (*Library, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PresetMetadata](repo)), nil
}

// Get loads the preset called name.
func (l *Library) Get(ctx context.Context, name string) (Preset, error) {
	doc, err := l.Repo.Get(ctx, name)
	if err != nil {
		return Preset{}, fmt.Errorf("loam get failed for %s: %w", name, err)
	}

	meta := doc.Data
	raw := map[string]any{"sequence_command": meta.SequenceCommand}
	if meta.Activity != "" {
		raw["activity"] = meta.Activity
	}
	if len(meta.Configuration) > 0 {
		raw["configuration"] = meta.Configuration
	}
	cmd, err := config.DecodeCommand(raw)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", name, err)
	}

	p := Preset{
		Name:        presetName(meta.ID, doc.ID),
		Description: strings.TrimSpace(doc.Content),
		Command:     cmd,
	}
	if meta.Timeout != "" {
		if p.Timeout, err = time.ParseDuration(meta.Timeout); err != nil {
			return Preset{}, fmt.Errorf("preset %s: invalid timeout: %w", name, err)
		}
	}
	return p, nil
}

// List returns the sorted names of every preset.
func (l *Library) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := presetName(doc.Data.ID, doc.ID)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: preset '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func presetName(id, docID string) string {
	if id == "" {
		id = docID
	}
	if ext := filepath.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return filepath.ToSlash(id)
}
