package chat

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const suffixLength = 9

// IDGenerator mints identifiers of the form <prefix>-<unix millis>-<suffix>.
// The timestamp component never goes backwards for a given generator, even if
// the wall clock does.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDGenerator returns a generator reading the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns a fresh identifier carrying prefix.
func (g *IDGenerator) Next(prefix string) string {
	millis := g.observe()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]

	var b strings.Builder
	b.Grow(len(prefix) + 32)
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(millis, 10))
	b.WriteByte('-')
	b.WriteString(suffix)
	return b.String()
}

func (g *IDGenerator) observe() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := g.now().UnixMilli()
	if millis < g.last {
		millis = g.last
	}
	g.last = millis
	return millis
}

var defaultGenerator = NewIDGenerator()

// NewID returns a process-unique identifier carrying prefix.
func NewID(prefix string) string {
	return defaultGenerator.Next(prefix)
}
