// Package streamsync, istemci tarafında sayfalı ve thread'li mesaj akışlarının
// önbelleğini ve iyimser (optimistic) mutasyon koordinasyonunu sağlar.
//
// Her akış (kanalın üst seviye akışı ya da tek bir thread) kendi StreamKey'i ile
// tutulur. Cache sayfaları kronolojik sırada saklar; Fetcher geriye doğru (daha eski)
// sayfaları çeker; Coordinator gönderme, düzenleme ve reaction toggle işlemlerini
// Begin → Apply → Issue → Reconcile/Rollback protokolüyle yürütür.
package streamsync

import "fmt"

// StreamKind, akış türü.
type StreamKind int

const (
	KindChannel StreamKind = iota
	KindThread
)

// StreamKey, bir akışın önbellek anahtarı.
type StreamKey struct {
	Kind StreamKind
	ID   string
}

// ChannelKey, kanalın üst seviye akışının anahtarı.
func ChannelKey(channelID string) StreamKey {
	return StreamKey{Kind: KindChannel, ID: channelID}
}

// ThreadKey, ebeveyn mesaj ID'sine göre thread akışının anahtarı.
func ThreadKey(parentID string) StreamKey {
	return StreamKey{Kind: KindThread, ID: parentID}
}

func (k StreamKey) String() string {
	switch k.Kind {
	case KindChannel:
		return "channel:" + k.ID
	case KindThread:
		return "thread:" + k.ID
	default:
		return fmt.Sprintf("kind(%d):%s", int(k.Kind), k.ID)
	}
}
