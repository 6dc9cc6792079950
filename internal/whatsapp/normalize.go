package whatsapp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenameReservedKeys rewrites every "from" key in the raw webhook JSON to
// "from_" before schema decoding. "from" is a reserved identifier in
// several languages that consume this payload shape downstream, so the
// rename is kept as part of the wire contract.
func RenameReservedKeys(body []byte) ([]byte, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	fixed, err := json.Marshal(renameKeys(data))
	if err != nil {
		return nil, fmt.Errorf("re-encode webhook body: %w", err)
	}
	return fixed, nil
}

func renameKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == "from" {
				k = "from_"
			}
			out[k] = renameKeys(val)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = renameKeys(item)
		}
		return t
	default:
		return v
	}
}

// NormalizeReply prepares a reply body for WhatsApp: bracket artifacts from
// JSON-rendered lists are stripped and markdown bold is converted to
// WhatsApp emphasis.
func NormalizeReply(text string) string {
	text = strings.ReplaceAll(text, "[", "")
	text = strings.ReplaceAll(text, "]", "")
	text = strings.ReplaceAll(text, "**", "*")
	return text
}
