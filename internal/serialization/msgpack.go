package serialization

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPackCodec serves application/msgpack. Transfer models carry msgpack
// struct tags mirroring their json tags, so both codecs agree on wire
// field names.
type MsgPackCodec struct{}

func (MsgPackCodec) MediaType() string { return "application/msgpack" }

func (MsgPackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgPackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
