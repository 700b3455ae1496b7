// Package identity hands out ephemeral display names for anonymous sessions.
package identity

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	descriptors = []string{"Silent", "Brave", "Swift", "Curious", "Calm", "Bright", "Hidden", "Lucky"}
	nouns       = []string{"Fox", "Owl", "Panda", "Tiger", "Wolf", "Koala", "Falcon", "Otter"}
)

// Generator produces names like "SwiftOtter417". Names are not unique.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded from the clock.
func NewGenerator() *Generator {
	seed := uint64(time.Now().UnixNano())
	return NewGeneratorWithSource(rand.NewPCG(seed, seed>>1|1))
}

// NewGeneratorWithSource creates a Generator drawing from src.
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns a fresh display name.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	descriptor := descriptors[g.rng.IntN(len(descriptors))]
	noun := nouns[g.rng.IntN(len(nouns))]
	suffix := 100 + g.rng.IntN(900)
	return fmt.Sprintf("%s%s%d", descriptor, noun, suffix)
}
