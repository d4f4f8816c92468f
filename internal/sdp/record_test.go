package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRecordIsWellFormedSequence(t *testing.T) {
	rec := BuildRecord(true)
	size, ok := deElementSize(rec)
	require.True(t, ok)
	assert.Equal(t, len(rec), size)
	assert.Equal(t, byte(deTypeSeq), rec[0]>>3)
}

func TestParseRecordListFindsHandle(t *testing.T) {
	// Build a single synthetic record sequence containing a
	// ServiceRecordHandle attribute, the shape the real SDP server's
	// search response carries per record.
	recSeq := seq(attr(0x0000, u32(0xcafef00d)), attr(0x0001, uuid16(0x1101)))
	handle, ok := findHandleAttr(recSeq)
	require.True(t, ok)
	assert.Equal(t, uint32(0xcafef00d), handle)

	body := append([]byte{0x00, 0x00}, recSeq...)
	records := parseRecordList(body)
	require.Len(t, records, 1)
	assert.Equal(t, uint32(0xcafef00d), records[0].Handle)
}

func TestBuildRecordEmbedsDescriptor(t *testing.T) {
	rec := BuildRecord(false)
	assert.Contains(t, string(rec), string([]byte{0x22}))
}
