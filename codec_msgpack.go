package throttle

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec encodes/decodes job payloads as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(m *Message) ([]byte, error) {
	return msgpack.Marshal(m)
}

func (MsgpackCodec) Decode(data []byte) (*Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (MsgpackCodec) Name() string { return CodecNameMsgpack }
