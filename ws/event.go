// Package ws, presence odalarının WebSocket tarafını yönetir.
//
// Mimari:
//   - Registry: oda → canlı ConnectionSession kümesi, dedup'lı üye listesi
//   - room: oda başına tek goroutine (actor); connect, mesaj ve disconnect
//     event'leri tek bir kanaldan sırayla işlenir
//   - Hub: oda map'i, actor'leri tembel başlatır ve boşalınca durdurur
//   - Client: gorilla/websocket bağlantısı, ReadPump + WritePump
//
// Her üyelik değişikliğinde snapshot baştan hesaplanır ve odadaki herkese
// tam liste olarak gönderilir; delta yoktur.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akinalp/teamchat/models"
)

// errMalformed, decode edilemeyen veya bilinmeyen presence frame'i.
var errMalformed = errors.New("malformed presence frame")

// inbound, client'tan gelen ve decode edilmiş bir kontrol mesajı.
// Type add-user ise User doludur.
type inbound struct {
	Type models.PresenceMessageType
	User *models.User
}

// decodeInbound, ham frame'i kontrol mesajına çevirir.
// Geçersiz JSON, bilinmeyen type ve ID'siz kullanıcı errMalformed ile döner.
func decodeInbound(raw []byte) (inbound, error) {
	var msg models.PresenceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return inbound{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch msg.Type {
	case models.PresenceAddUser:
		var user models.User
		if len(msg.Payload) == 0 {
			return inbound{}, fmt.Errorf("%w: add-user without payload", errMalformed)
		}
		if err := json.Unmarshal(msg.Payload, &user); err != nil {
			return inbound{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
		if !user.Valid() {
			return inbound{}, fmt.Errorf("%w: user id is required", errMalformed)
		}
		return inbound{Type: msg.Type, User: &user}, nil

	case models.PresenceRemoveUser:
		return inbound{Type: msg.Type}, nil

	default:
		return inbound{}, fmt.Errorf("%w: unknown type %q", errMalformed, msg.Type)
	}
}

// encodeSnapshot, {"type":"presence","payload":{"users":[...]}} frame'ini üretir.
func encodeSnapshot(users []models.User) ([]byte, error) {
	if users == nil {
		users = []models.User{}
	}
	payload, err := json.Marshal(models.PresencePayload{Users: users})
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.PresenceMessage{Type: models.PresenceSnapshot, Payload: payload})
}
