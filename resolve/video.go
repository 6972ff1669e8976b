package resolve

import (
	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

// videoMarker places a timestamp along the timeline track: a zero-width
// marker at the progress fraction, spanning the track's height. Video
// timestamps produce a timeline position, not a content-area rectangle.
func videoMarker(ts *target.Timestamp, v VideoView) (geom.Rect, bool) {
	if v.Timeline == nil || v.Duration <= 0 {
		return geom.Rect{}, false
	}

	frac := ts.Seconds / v.Duration
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	return geom.Rect{
		X: v.Timeline.X + frac*v.Timeline.W,
		Y: v.Timeline.Y,
		W: 0,
		H: v.Timeline.H,
	}, true
}
