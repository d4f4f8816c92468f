package session

import "github.com/ronsdev/btkeyd/internal/hid/codec"

// shadow is the last-known state of every input report this daemon can
// send, re-encoded on every GET_REPORT Input and reset to "all released"
// whenever a link comes up.
type shadow struct {
	keyboard codec.Keyboard
	mouse    codec.Mouse
	absolute codec.MouseAbsolute
	system   byte
	hw       byte
	media    byte
	ac       byte
	feature  codec.MouseFeature
}

func (s *shadow) reset() {
	*s = shadow{}
}
