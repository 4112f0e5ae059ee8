package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the tape encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatMsgpack, "msgpk", "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// EncodeTape serializes a tape. msgpack reuses the json field names so both
// encodings describe the same document.
func EncodeTape(tape *Tape, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(tape, "", "  ")
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(tape); err != nil {
			return nil, fmt.Errorf("msgpack encode tape: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func DecodeTape(raw []byte, format Format) (*Tape, error) {
	var tape Tape
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &tape); err != nil {
			return nil, fmt.Errorf("json decode tape: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(raw))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&tape); err != nil {
			return nil, fmt.Errorf("msgpack decode tape: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &tape, nil
}
