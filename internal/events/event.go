// Package events 定義房間事件串流的事件種類與解碼。
//
// 每個事件都是封閉的和型別（sealed sum type）：Event 介面帶有未導出的方法，
// 只有本包內的四種結構能實作它。處理事件的程式碼透過 Visitor 分派，
// 新增事件種類時，每個 Visitor 實作都會在編譯期報錯。
package events

// Kind 是事件種類
type Kind string

const (
	KindMessageCreated           Kind = "message_created"
	KindMessageAnswered          Kind = "message_answered"
	KindMessageReactionIncreased Kind = "message_reaction_increased"
	KindMessageReactionDecreased Kind = "message_reaction_decreased"
)

// Kinds 列出所有可處理的事件種類
var Kinds = []Kind{
	KindMessageCreated,
	KindMessageAnswered,
	KindMessageReactionIncreased,
	KindMessageReactionDecreased,
}

// Valid 判斷是否為已知的事件種類
func (k Kind) Valid() bool {
	switch k {
	case KindMessageCreated, KindMessageAnswered, KindMessageReactionIncreased, KindMessageReactionDecreased:
		return true
	}
	return false
}

// Event 是伺服器推送的單一事件
type Event interface {
	Kind() Kind
	MessageID() string
	Accept(v Visitor)
	sealed()
}

// Visitor 依事件種類分派處理
type Visitor interface {
	VisitMessageCreated(MessageCreated)
	VisitMessageAnswered(MessageAnswered)
	VisitMessageReactionIncreased(MessageReactionIncreased)
	VisitMessageReactionDecreased(MessageReactionDecreased)
}

// MessageCreated 新提問建立
type MessageCreated struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MessageAnswered 提問已被回答
type MessageAnswered struct {
	ID string `json:"id"`
	// Answer 上游會一併送出回答內容，快取不使用
	Answer string `json:"answer,omitempty"`
}

// MessageReactionIncreased 反應數增加，Count 為絕對值
type MessageReactionIncreased struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

// MessageReactionDecreased 反應數減少，Count 為絕對值
type MessageReactionDecreased struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

func (MessageCreated) Kind() Kind           { return KindMessageCreated }
func (MessageAnswered) Kind() Kind          { return KindMessageAnswered }
func (MessageReactionIncreased) Kind() Kind { return KindMessageReactionIncreased }
func (MessageReactionDecreased) Kind() Kind { return KindMessageReactionDecreased }

func (e MessageCreated) MessageID() string           { return e.ID }
func (e MessageAnswered) MessageID() string          { return e.ID }
func (e MessageReactionIncreased) MessageID() string { return e.ID }
func (e MessageReactionDecreased) MessageID() string { return e.ID }

func (e MessageCreated) Accept(v Visitor)           { v.VisitMessageCreated(e) }
func (e MessageAnswered) Accept(v Visitor)          { v.VisitMessageAnswered(e) }
func (e MessageReactionIncreased) Accept(v Visitor) { v.VisitMessageReactionIncreased(e) }
func (e MessageReactionDecreased) Accept(v Visitor) { v.VisitMessageReactionDecreased(e) }

func (MessageCreated) sealed()           {}
func (MessageAnswered) sealed()          {}
func (MessageReactionIncreased) sealed() {}
func (MessageReactionDecreased) sealed() {}
