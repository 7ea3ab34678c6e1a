package model

import (
	"sync"

	"github.com/google/uuid"
)

// The transfer-model name registry is the only process-wide mutable state
// of the synthesizer. Names are appended for the lifetime of the process
// and only cleared at test teardown.
var registry = struct {
	mu   sync.Mutex
	seen map[string]struct{}
}{seen: make(map[string]struct{})}

// ReserveName claims a unique transfer-model name: the short candidate is
// preferred, then the long candidate, then the long candidate with a random
// suffix as a last resort. The returned name is reserved process-wide.
func ReserveName(short, long string) string {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for _, candidate := range []string{short, long} {
		if _, taken := registry.seen[candidate]; !taken {
			registry.seen[candidate] = struct{}{}
			return candidate
		}
	}
	for {
		candidate := long + "_" + uuid.NewString()[:8]
		if _, taken := registry.seen[candidate]; !taken {
			registry.seen[candidate] = struct{}{}
			return candidate
		}
	}
}

// ResetNames clears the registry. Test teardown only.
func ResetNames() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.seen = make(map[string]struct{})
}
