package tenantv1

import (
	"encoding/json"
)

// JSONCodec is a connect codec for plain Go structs. It replaces connect's
// default "json" codec, which only accepts protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalStable is used for HTTP GET requests, whose query string must be
// deterministic to be cacheable. encoding/json emits struct fields in
// declaration order and sorts map keys.
func (JSONCodec) MarshalStable(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) IsBinary() bool { return false }

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
