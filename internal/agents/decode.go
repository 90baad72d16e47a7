package agents

import "encoding/json"

// decodeInto re-encodes a generic JSON object into a typed struct.
func decodeInto(m map[string]any, dst any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
