package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame 表示訊框不是合法的 JSON 或缺少必要欄位
	ErrMalformedFrame = errors.New("malformed event frame")
	// ErrUnknownKind 表示訊框的 kind 不在可處理的種類中
	ErrUnknownKind = errors.New("unknown event kind")
)

// Frame 是串流上的單一文字訊框 {kind, value}
type Frame struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Decode 將文字訊框解碼為事件
func Decode(data []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Kind)
	}
	if len(f.Value) == 0 || string(f.Value) == "null" {
		return nil, fmt.Errorf("%w: %s without value", ErrMalformedFrame, f.Kind)
	}

	var ev Event
	var err error
	switch f.Kind {
	case KindMessageCreated:
		var v MessageCreated
		err = json.Unmarshal(f.Value, &v)
		ev = v
	case KindMessageAnswered:
		var v MessageAnswered
		err = json.Unmarshal(f.Value, &v)
		ev = v
	case KindMessageReactionIncreased:
		var v MessageReactionIncreased
		err = json.Unmarshal(f.Value, &v)
		ev = v
	case KindMessageReactionDecreased:
		var v MessageReactionDecreased
		err = json.Unmarshal(f.Value, &v)
		ev = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, f.Kind, err)
	}
	if ev.MessageID() == "" {
		return nil, fmt.Errorf("%w: %s without id", ErrMalformedFrame, f.Kind)
	}
	return ev, nil
}

// Encode 將事件編碼為文字訊框
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind  `json:"kind"`
		Value Event `json:"value"`
	}{Kind: ev.Kind(), Value: ev})
}

// DropReason 回傳解碼錯誤的分類，作為指標標籤
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed"
	default:
		return "other"
	}
}
