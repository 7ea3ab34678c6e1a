package serialization

import (
	"github.com/goccy/go-json"
)

// JSONCodec serves application/json. It uses the goccy/go-json encoder,
// which honors the same struct tags as encoding/json.
type JSONCodec struct{}

func (JSONCodec) MediaType() string { return "application/json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
