package operation

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

type batchFile struct {
	Operations []map[string]any `toml:"operations"`
}

// DecodeBatch reads a TOML document of [[operations]] tables. Each table
// names its kind and carries the request fields in snake_case:
//
//	[[operations]]
//	kind = "border"
//	input = "in.mp4"
//	output = "out.mp4"
//	thickness = 20
//
// Fields left out keep the kind's defaults. Unknown fields are rejected.
func DecodeBatch(r io.Reader) ([]Request, error) {
	var file batchFile
	if err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if len(file.Operations) == 0 {
		return nil, invalid("batch has no operations")
	}

	reqs := make([]Request, 0, len(file.Operations))
	for i, entry := range file.Operations {
		req, err := decodeEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func decodeEntry(entry map[string]any) (Request, error) {
	kind, _ := entry["kind"].(string)
	spec, ok := Lookup(Kind(kind))
	if !ok {
		return nil, invalid("unknown kind %q", kind)
	}

	fields := make(map[string]any, len(entry))
	for k, v := range entry {
		if k != "kind" {
			fields[k] = v
		}
	}
	data, err := toml.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	req := spec.New()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, kind, err)
	}
	return req, nil
}
