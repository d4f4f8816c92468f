package session

import (
	"fmt"

	"github.com/ronsdev/btkeyd/internal/hid/codec"
	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
)

// send calls encode (which updates the shadow and encodes it) and writes
// exactly one DATA|Input frame on the interrupt channel. A write error
// tears the link down, matching "a write error on the interrupt channel
// transitions to Closing".
func (s *Session) send(encode func() []byte) error {
	if s.state != Up {
		return fmt.Errorf("session: send while %s", s.state)
	}
	frame := codec.DataInput(encode())
	if _, err := s.intr.Write(frame); err != nil {
		s.teardown(0)
		return fmt.Errorf("session: interrupt write: %w", err)
	}
	return nil
}

// SendKeys updates and sends the keyboard input report.
func (s *Session) SendKeys(modifier byte, keys [6]byte) error {
	return s.send(func() []byte {
		s.shadow.keyboard = codec.Keyboard{Modifier: modifier, Keys: keys}
		return codec.EncodeKeyboard(s.shadow.keyboard)
	})
}

// SendSystemKeys updates and sends the system-keys input report.
func (s *Session) SendSystemKeys(bitmap byte) error {
	return s.send(func() []byte {
		s.shadow.system = bitmap
		return codec.EncodeBitmapReport(descriptor.ReportIDSystemKeys, bitmap)
	})
}

// SendHwKeys updates and sends the hardware-keys input report.
func (s *Session) SendHwKeys(bitmap byte) error {
	return s.send(func() []byte {
		s.shadow.hw = bitmap
		return codec.EncodeBitmapReport(descriptor.ReportIDHwKeys, bitmap)
	})
}

// SendMediaKeys updates and sends the media-keys input report.
func (s *Session) SendMediaKeys(bitmap byte) error {
	return s.send(func() []byte {
		s.shadow.media = bitmap
		return codec.EncodeBitmapReport(descriptor.ReportIDMediaKeys, bitmap)
	})
}

// SendACKeys updates and sends the application-control-keys input report.
func (s *Session) SendACKeys(bitmap byte) error {
	return s.send(func() []byte {
		s.shadow.ac = bitmap
		return codec.EncodeBitmapReport(descriptor.ReportIDAppControl, bitmap)
	})
}

// SendMouse updates and sends the relative-mouse input report. X/Y and the
// wheel deltas are clamped by codec.EncodeMouse.
func (s *Session) SendMouse(buttons byte, x, y int16, wheelY, wheelX int8) error {
	return s.send(func() []byte {
		s.shadow.mouse = codec.Mouse{Buttons: buttons, X: x, Y: y, WheelY: wheelY, WheelX: wheelX}
		return codec.EncodeMouse(s.shadow.mouse)
	})
}

// SendMouseAbsolute updates and sends the absolute-mouse input report. X/Y
// are clamped by codec.EncodeMouseAbsolute.
func (s *Session) SendMouseAbsolute(buttons byte, x, y uint16) error {
	return s.send(func() []byte {
		s.shadow.absolute = codec.MouseAbsolute{Buttons: buttons, X: x, Y: y}
		return codec.EncodeMouseAbsolute(s.shadow.absolute)
	})
}

// SetMouseFeature updates the shadow feature report directly, for the
// Local Command Channel's CHANGE_MOUSE_FEATURE command, and notifies the
// local client of the new value. Unlike the Send* reports it writes
// nothing to the host; a host sees it the next time it issues GET_REPORT
// Feature on report ID 0x22. It is accepted regardless of link state, but
// a value set while no link is up is cleared when the next link comes up,
// since entering Up resets the whole shadow.
func (s *Session) SetMouseFeature(smoothY, smoothX bool) {
	s.shadow.feature = codec.MouseFeature{SmoothScrollY: smoothY, SmoothScrollX: smoothX}
	if s.notifier != nil {
		s.notifier.MouseFeatureChanged(smoothY, smoothX)
	}
}
