package redisstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/docstore"
)

const dateKey = "$date"

var errCodec = errors.New("docstore redis codec")

// encode renders a document as JSON, wrapping timestamps as {"$date": RFC3339Nano}
// so they decode back to time.Time rather than strings.
func encode(doc docstore.Document) ([]byte, error) {
	data, err := json.Marshal(encodeValue(map[string]any(doc)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCodec, err)
	}
	return data, nil
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{dateKey: t.UTC().Format(time.RFC3339Nano)}
	case *time.Time:
		if t == nil {
			return nil
		}
		return encodeValue(*t)
	case docstore.Document:
		return encodeValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = encodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = encodeValue(item)
		}
		return out
	default:
		return v
	}
}

func decode(data []byte) (docstore.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errCodec, err)
	}
	out, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	return docstore.Document(out.(map[string]any)), nil
}

func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errCodec, err)
		}
		return f, nil
	case map[string]any:
		if s, ok := t[dateKey].(string); ok && len(t) == 1 {
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errCodec, err)
			}
			return ts, nil
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			d, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			d, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	default:
		return v, nil
	}
}
