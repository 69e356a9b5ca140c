package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/dice-quest/internal/protocol"
)

// Format 线路编码格式
type Format int

const (
	// FormatJSON 文本帧，浏览器客户端默认使用
	FormatJSON Format = iota
	// FormatProto 二进制帧，payload 以 protobuf Struct 编码
	FormatProto
)

const (
	envelopeType    = "type"
	envelopePayload = "payload"
)

// ErrMissingType 消息缺少 type 字段
var ErrMissingType = errors.New("codec: message type is required")

// NewMessage 创建一个新消息
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	msg := GetMessage()
	msg.Type = msgType

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			PutMessage(msg)
			return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 按指定格式编码消息
func Encode(m *protocol.Message, format Format) ([]byte, error) {
	if format == FormatProto {
		return EncodeProto(m)
	}
	return EncodeJSON(m)
}

// Decode 按指定格式解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func Decode(data []byte, format Format) (*protocol.Message, error) {
	if format == FormatProto {
		return DecodeProto(data)
	}
	return DecodeJSON(data)
}

// EncodeJSON 将消息编码为 JSON 文本
func EncodeJSON(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	// Encoder 会追加换行符
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeJSON 从 JSON 文本解码消息
func DecodeJSON(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrMissingType
	}
	return msg, nil
}

// EncodeProto 将消息编码为 protobuf 字节（structpb.Struct 信封）
func EncodeProto(m *protocol.Message) ([]byte, error) {
	fields := map[string]any{envelopeType: string(m.Type)}
	if len(m.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", m.Type, err)
		}
		fields[envelopePayload] = payload
	}

	env, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(env)
}

// DecodeProto 从 protobuf 字节解码消息
func DecodeProto(data []byte) (*protocol.Message, error) {
	env := GetEnvelope()
	defer PutEnvelope(env)

	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}

	typ := env.GetFields()[envelopeType].GetStringValue()
	if typ == "" {
		return nil, ErrMissingType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(typ)
	if v, ok := env.GetFields()[envelopePayload]; ok {
		raw, err := json.Marshal(v.AsInterface())
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("%s: empty payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: protocol.ErrorMessages[code],
	})
	return msg
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
	return msg
}
