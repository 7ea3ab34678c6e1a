package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	t.Run("resolves canonical media types", func(t *testing.T) {
		c, err := reg.Lookup("application/json")
		require.NoError(t, err)
		assert.Equal(t, "application/json", c.MediaType())

		c, err = reg.Lookup("application/msgpack")
		require.NoError(t, err)
		assert.Equal(t, "application/msgpack", c.MediaType())
	})

	t.Run("ignores parameters and case", func(t *testing.T) {
		c, err := reg.Lookup("Application/JSON; charset=utf-8")
		require.NoError(t, err)
		assert.Equal(t, "application/json", c.MediaType())
	})

	t.Run("unknown media type", func(t *testing.T) {
		_, err := reg.Lookup("text/csv")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	})
}

func TestCodecRoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name" msgpack:"name"`
		Count int    `json:"count" msgpack:"count"`
	}
	in := payload{Name: "widget", Count: 3}

	for _, codec := range []Codec{JSONCodec{}, MsgPackCodec{}} {
		t.Run(codec.MediaType(), func(t *testing.T) {
			data, err := codec.Marshal(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, codec.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}

	t.Run("json uses wire names", func(t *testing.T) {
		data, err := JSONCodec{}.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"widget","count":3}`, string(data))
	})
}
