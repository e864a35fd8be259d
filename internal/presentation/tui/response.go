package tui

import (
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/muesli/termenv"
)

// FormatResponse colors a handler response by kind for terminal output.
func FormatResponse(p termenv.Profile, r domain.HandlerResponse) string {
	s := p.String(r.String()).Bold()
	switch r.Kind {
	case domain.KindCompleted, domain.KindAccepted:
		s = s.Foreground(p.Color("#22c55e"))
	case domain.KindStarted:
		s = s.Foreground(p.Color("#38bdf8"))
	case domain.KindNoAnswer:
		s = s.Foreground(p.Color("#eab308"))
	case domain.KindError:
		s = s.Foreground(p.Color("#ef4444"))
	}
	return s.String()
}
