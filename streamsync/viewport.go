package streamsync

// NearBottomThreshold, alt kenara bu kadar (px) yakın görünüm "altta" sayılır.
const NearBottomThreshold = 150.0

// Viewport, kaydırılabilir mesaj listesinin ölçüleri.
type Viewport struct {
	ScrollTop     float64
	ClientHeight  float64
	ContentHeight float64
}

// DistanceFromBottom, görünümün alt kenarı ile içeriğin sonu arasındaki mesafe.
func (v Viewport) DistanceFromBottom() float64 {
	d := v.ContentHeight - v.ScrollTop - v.ClientHeight
	if d < 0 {
		return 0
	}
	return d
}

// NearBottom, içerik yüksekliğini değiştirebilecek her olayda kullanılan tek yakınlık kuralı.
func (v Viewport) NearBottom() bool {
	return v.DistanceFromBottom() <= NearBottomThreshold
}

func (v Viewport) bottom() float64 {
	top := v.ContentHeight - v.ClientHeight
	if top < 0 {
		return 0
	}
	return top
}

// ScrollState, bir akış görünümünün kaydırma durumu ve "yeni mesajlar" göstergesi.
type ScrollState struct {
	View        Viewport
	NewMessages bool
}

// Scroll, kullanıcı kaydırmasını işler. Alta yaklaşınca gösterge kapanır.
func (s *ScrollState) Scroll(scrollTop float64) {
	s.View.ScrollTop = scrollTop
	if s.View.NearBottom() {
		s.NewMessages = false
	}
}

// AnchorAfterPrepend, eski sayfa başa eklendikten sonra görünümü aynı öğede tutar.
// Konum, eklemenin yerine göre değil içerik yüksekliği farkına göre düzeltilir.
func (s *ScrollState) AnchorAfterPrepend(contentHeightAfter float64) {
	delta := contentHeightAfter - s.View.ContentHeight
	s.View.ContentHeight = contentHeightAfter
	s.View.ScrollTop += delta
}

// FollowAfterAppend, sona kayıt eklendikten sonra çağrılır. Görünüm eklemeden
// önce alttaysa yeni alta kayar; değilse yerinde kalır ve gösterge açılır.
// Görünümün kaydırılıp kaydırılmadığını döner.
func (s *ScrollState) FollowAfterAppend(contentHeightAfter float64) bool {
	wasNear := s.View.NearBottom()
	s.View.ContentHeight = contentHeightAfter
	if wasNear {
		s.View.ScrollTop = s.View.bottom()
		return true
	}
	s.NewMessages = true
	return false
}

// Resize, görünüm yüksekliği değişince aynı kuralla alta yapışır.
func (s *ScrollState) Resize(clientHeight float64) bool {
	wasNear := s.View.NearBottom()
	s.View.ClientHeight = clientHeight
	if wasNear {
		s.View.ScrollTop = s.View.bottom()
	}
	return wasNear
}

// ContentGrew, resim yüklenmesi gibi eklemesiz yükseklik değişimlerinde çağrılır.
func (s *ScrollState) ContentGrew(contentHeightAfter float64) bool {
	wasNear := s.View.NearBottom()
	s.View.ContentHeight = contentHeightAfter
	if wasNear {
		s.View.ScrollTop = s.View.bottom()
	}
	return wasNear
}
