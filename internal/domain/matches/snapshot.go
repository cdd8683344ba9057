package matches

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeSnapshot reads either a bare JSON list of matches or an object of the
// form {"matches": [...]}. A missing matches key yields an empty snapshot.
// The result is validated with Validate.
func DecodeSnapshot(r io.Reader) ([]Match, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	list, err := ParseSnapshot(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// ParseSnapshot decodes raw JSON in either accepted shape without validating.
func ParseSnapshot(raw []byte) ([]Match, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode snapshot: empty body")
	}
	if trimmed[0] == '[' {
		var list []Match
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode snapshot list: %w", err)
		}
		return nonNil(list), nil
	}
	var payload ListResponse
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot object: %w", err)
	}
	return nonNil(payload.Matches), nil
}

func nonNil(list []Match) []Match {
	if list == nil {
		return []Match{}
	}
	return list
}
