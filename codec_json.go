package throttle

import "encoding/json"

// JSONCodec encodes/decodes job payloads as JSON. It is the default
// codec: most job frameworks serialize payloads as JSON objects.
type JSONCodec struct{}

func (JSONCodec) Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func (JSONCodec) Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (JSONCodec) Name() string { return CodecNameJSON }
