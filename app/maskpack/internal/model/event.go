package model

import "time"

// EventKind 审计事件类型
type EventKind string

const (
	EventUserCreated    EventKind = "user_created"
	EventPackOpened     EventKind = "pack_opened"
	EventMaskEquipped   EventKind = "mask_equipped"
	EventMaskUnequipped EventKind = "mask_unequipped"
	EventStorageTrimmed EventKind = "storage_trimmed"
	EventColorChanged   EventKind = "color_changed"
)

// Event 审计事件
// 对应表：events
type Event struct {
	ID        int64             `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Kind      EventKind         `db:"kind" json:"kind"`
	Payload   map[string]string `db:"payload" json:"payload"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// NewEvent 创建事件
func NewEvent(userID string, kind EventKind, payload map[string]string, now time.Time) *Event {
	if payload == nil {
		payload = map[string]string{}
	}
	return &Event{UserID: userID, Kind: kind, Payload: payload, CreatedAt: now}
}
