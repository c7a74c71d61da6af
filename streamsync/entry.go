package streamsync

import (
	"strings"

	"github.com/akinalp/teamchat/models"
)

// TempIDPrefix, henüz sunucuya ulaşmamış mesajların geçici ID ön eki.
const TempIDPrefix = "optimistic-"

// EntryState, önbellekteki bir kaydın durumu.
type EntryState int

const (
	// Confirmed: sunucunun döndüğü hali.
	Confirmed EntryState = iota
	// Pending: iyimser uygulanmış, sunucu cevabı bekleniyor.
	Pending
)

func (s EntryState) String() string {
	if s == Pending {
		return "pending"
	}
	return "confirmed"
}

// Entry, akıştaki tek bir kayıt.
// Token, Pending kaydı en son değiştiren mutasyonun token'ıdır.
type Entry struct {
	Record models.MessageRecord
	State  EntryState
	Token  string
}

func (e Entry) clone() Entry {
	e.Record = e.Record.Clone()
	return e
}

// IsTemp, ID'nin iyimser geçici ID olup olmadığını döner.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// ToggleReaction, viewer'ın emoji tepkisini reaction listesinde çevirir.
//
// Zaten tepki verilmişse sayı azaltılır, sıfıra inerse emoji kaldırılır ve
// reactedByMe temizlenir; aksi halde sayı artırılır (gerekirse emoji eklenir)
// ve reactedByMe set edilir. Girdi dilimi değiştirilmez.
func ToggleReaction(groups []models.ReactionGroup, emoji string) []models.ReactionGroup {
	out := make([]models.ReactionGroup, 0, len(groups)+1)
	found := false

	for _, g := range groups {
		if g.Emoji != emoji {
			out = append(out, g)
			continue
		}
		found = true
		if g.ReactedByMe {
			g.Count--
			g.ReactedByMe = false
			if g.Count <= 0 {
				continue
			}
		} else {
			g.Count++
			g.ReactedByMe = true
		}
		out = append(out, g)
	}

	if !found {
		out = append(out, models.ReactionGroup{Emoji: emoji, Count: 1, ReactedByMe: true})
	}
	return out
}
