package streamsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNearBottomThreshold(t *testing.T) {
	v := Viewport{ScrollTop: 850, ClientHeight: 500, ContentHeight: 1500}
	assert.Equal(t, 150.0, v.DistanceFromBottom())
	assert.True(t, v.NearBottom())

	v.ScrollTop = 849
	assert.False(t, v.NearBottom())
}

func TestAnchorAfterPrependKeepsElementInPlace(t *testing.T) {
	s := ScrollState{View: Viewport{ScrollTop: 40, ClientHeight: 500, ContentHeight: 2000}}

	s.AnchorAfterPrepend(3200)
	assert.Equal(t, 1240.0, s.View.ScrollTop)
	assert.Equal(t, 3200.0, s.View.ContentHeight)
}

func TestFollowAfterAppend(t *testing.T) {
	s := ScrollState{View: Viewport{ScrollTop: 1400, ClientHeight: 500, ContentHeight: 2000}}
	assert.True(t, s.FollowAfterAppend(2100))
	assert.Equal(t, 1600.0, s.View.ScrollTop)
	assert.False(t, s.NewMessages)

	s.Scroll(200)
	assert.False(t, s.FollowAfterAppend(2200))
	assert.Equal(t, 200.0, s.View.ScrollTop)
	assert.True(t, s.NewMessages)

	s.Scroll(1700)
	assert.False(t, s.NewMessages)
}

func TestResizeAndImageLoadUseSamePredicate(t *testing.T) {
	s := ScrollState{View: Viewport{ScrollTop: 1500, ClientHeight: 500, ContentHeight: 2000}}
	assert.True(t, s.ContentGrew(2300))
	assert.Equal(t, 1800.0, s.View.ScrollTop)

	assert.True(t, s.Resize(400))
	assert.Equal(t, 1900.0, s.View.ScrollTop)

	s.Scroll(0)
	assert.False(t, s.ContentGrew(2600))
	assert.Equal(t, 0.0, s.View.ScrollTop)
	assert.False(t, s.NewMessages, "height changes without new items raise no affordance")
}
