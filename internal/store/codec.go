package store

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"trade-journal/internal/errors"
)

// Codec encodes values for a snapshot file or a stored trade payload.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// JSONCodec writes indented JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec writes MessagePack using the json struct tags, so both
// formats share field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// CodecFor picks a codec from the file extension; anything but .msgpack or
// .mp is JSON.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

// EncodeSnapshot serializes a snapshot with the codec.
func EncodeSnapshot(c Codec, snap *Snapshot) ([]byte, error) {
	data, err := c.Marshal(snap)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s snapshot", c.Name())
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot. Any decode failure wraps
// errors.ErrSnapshotCorrupt.
func DecodeSnapshot(c Codec, data []byte) (*Snapshot, error) {
	snap := NewSnapshot()
	if err := c.Unmarshal(data, snap); err != nil {
		return nil, errors.Wrapf(errors.ErrSnapshotCorrupt, "decoding %s snapshot: %v", c.Name(), err)
	}
	snap.normalize()
	return snap, nil
}
