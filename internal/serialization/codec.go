// Package serialization converts transfer model instances to and from wire
// bytes. Codecs are selected by media type; the registry normalizes media
// type strings so "application/json; charset=utf-8" resolves the JSON codec.
package serialization

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnsupportedMediaType is returned when no codec is registered for a
// requested media type.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Codec defines an interface for converting values to and from their wire
// byte representation. Implementations handle one media type each; the
// value passed in is either a synthesized transfer model instance or a
// builtins tree, both of which every codec must support.
type Codec interface {
	// MediaType returns the canonical media type this codec serves.
	MediaType() string

	// Marshal returns the wire bytes for v.
	Marshal(v any) ([]byte, error)

	// Unmarshal populates the value pointed to by v from wire bytes.
	Unmarshal(data []byte, v any) error
}

// Registry maps normalized media types to codecs. The zero value is not
// usable; call NewRegistry, which seeds the built-in codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a registry with the JSON and MessagePack codecs
// registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(JSONCodec{})
	r.Register(MsgPackCodec{})
	return r
}

// Register adds or replaces the codec for its media type.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalize(c.MediaType())] = c
}

// Lookup resolves the codec for a media type. Parameters and case are
// ignored, so any "application/json; charset=..." variant resolves the
// same codec.
func (r *Registry) Lookup(mediaType string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[normalize(mediaType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mediaType)
	}
	return c, nil
}

// normalize strips media type parameters and lowercases the essence.
func normalize(mediaType string) string {
	essence, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(essence))
}
