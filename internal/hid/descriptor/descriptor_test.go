package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
)

// TestReportIDsPresent asserts every report ID byte internal/hid/codec
// knows how to encode actually appears as a REPORT_ID (0x85) item in the compiled
// descriptor. This is the drift check called out in SPEC_FULL.md §3: a
// report the codec emits that the descriptor never declared would be
// silently dropped by a real host's HID parser.
func TestReportIDsPresent(t *testing.T) {
	want := []byte{
		descriptor.ReportIDKeyboard,
		descriptor.ReportIDSystemKeys,
		descriptor.ReportIDHwKeys,
		descriptor.ReportIDMediaKeys,
		descriptor.ReportIDAppControl,
		descriptor.ReportIDMouse,
		descriptor.ReportIDMouseFeature,
		descriptor.ReportIDMouseAbsolute,
	}
	b := descriptor.Bytes
	for _, id := range want {
		found := false
		for i := 0; i+1 < len(b); i++ {
			if b[i] == 0x85 && b[i+1] == id {
				found = true
				break
			}
		}
		assert.True(t, found, "report id 0x%02x not declared via REPORT_ID item", id)
	}
}

// TestCollectionsBalanced asserts every opened collection (0xa1) is
// closed (0xc0) — a malformed descriptor would otherwise hang or
// misparse on the host.
func TestCollectionsBalanced(t *testing.T) {
	depth := 0
	for _, b := range descriptor.Bytes {
		switch b {
		case 0xa1:
			depth++
		case 0xc0:
			depth--
			require.GreaterOrEqual(t, depth, 0, "unbalanced collection end")
		}
	}
	assert.Equal(t, 0, depth)
}

func TestDescriptorNotEmpty(t *testing.T) {
	assert.NotEmpty(t, descriptor.Bytes)
}
