package models

import (
	"encoding/json"
	"strings"
)

// PresenceMessageType, presence wire protokolündeki mesaj türü.
type PresenceMessageType string

const (
	// Client → Hub
	PresenceAddUser    PresenceMessageType = "add-user"
	PresenceRemoveUser PresenceMessageType = "remove-user"

	// Hub → Client
	PresenceSnapshot PresenceMessageType = "presence"
)

// RoomPrefix, workspace başına açılan presence odasının ön eki.
const RoomPrefix = "workspace-"

// PresenceMessage, presence bağlantısında taşınan JSON zarfı.
//
//	{"type":"add-user","payload":{...User}}
//	{"type":"remove-user"}
//	{"type":"presence","payload":{"users":[...]}}
//
// Payload ham tutulur; türüne göre ayrıca decode edilir.
type PresenceMessage struct {
	Type    PresenceMessageType `json:"type"`
	Payload json.RawMessage     `json:"payload,omitempty"`
}

// PresencePayload, "presence" mesajının payload'ı.
type PresencePayload struct {
	Users []User `json:"users"`
}

// RoomPresenceSnapshot, bir odanın o anki üyelik görüntüsü.
// Her değişiklikte canlı oturumlardan baştan hesaplanır, yerinde değiştirilmez.
type RoomPresenceSnapshot struct {
	RoomID string
	Users  []User
}

// WorkspaceRoom, workspace ID'sinden oda adını üretir.
func WorkspaceRoom(workspaceID string) string {
	return RoomPrefix + workspaceID
}

// ValidRoom, oda adının "workspace-<id>" formatında olup olmadığını kontrol eder.
func ValidRoom(room string) bool {
	id, ok := strings.CutPrefix(room, RoomPrefix)
	return ok && id != "" && !strings.ContainsAny(id, "/ ")
}
