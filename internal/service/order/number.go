package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NumberGenerator composes caller-facing order numbers in the kitchen's local time.
type NumberGenerator struct {
	loc    *time.Location
	now    func() time.Time
	suffix func() string
}

// NewNumberGenerator builds a generator using the wall clock and uuid randomness.
func NewNumberGenerator(loc *time.Location) *NumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &NumberGenerator{
		loc: loc,
		now: time.Now,
		suffix: func() string {
			return strings.ToUpper(uuid.NewString()[:4])
		},
	}
}

// Candidate returns T + MMDD + four upper-case hex characters.
func (g *NumberGenerator) Candidate() string {
	return "T" + g.now().In(g.loc).Format("0102") + g.suffix()
}

// Fallback returns a time-only number, T + YYMMDDHHMMSS + centiseconds.
func (g *NumberGenerator) Fallback() string {
	now := g.now().In(g.loc)
	return "T" + now.Format("060102150405") + fmt.Sprintf("%02d", now.Nanosecond()/int(10*time.Millisecond))
}
