package kvrel

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the snapshot wire format.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON

	defaultSnapshotEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("encoding(%d)", int(enc))
	}
}

func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "msgpack":
		return MsgPack, nil
	case "json":
		return JSON, nil
	default:
		return defaultSnapshotEncoding, fmt.Errorf("kvrel: unknown encoding %q", s)
	}
}

func (enc Encoding) EncodeValue(w io.Writer, v any) error {
	switch enc {
	case MsgPack:
		e := msgpack.GetEncoder()
		e.Reset(w)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		return nil
	case JSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}

func (enc Encoding) DecodeValue(r io.Reader, v any) error {
	switch enc {
	case MsgPack:
		d := msgpack.GetDecoder()
		d.Reset(r)
		err := d.Decode(v)
		msgpack.PutDecoder(d)
		if err != nil {
			return fmt.Errorf("failed to decode msgpack into %T: %w", v, err)
		}
		return nil
	case JSON:
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON into %T: %w", v, err)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}
