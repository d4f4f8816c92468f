package sdp

import (
	"encoding/binary"
	"fmt"

	"github.com/ronsdev/btkeyd/internal/l2cap"
)

// ServicePSM is the well-known SDP PSM every Bluetooth stack's SDP server
// listens on.
const ServicePSM = 0x0001

// PDU IDs. The first four are the public SDP protocol (Bluetooth Core Spec
// vol 3 part B §4.4); the 0x75-range ones are BlueZ's private extension for
// local record registration, the same control path hidsdp.c drives through
// sdp_record_register/sdp_record_unregister/sdp_device_record_register.
const (
	pduServiceSearchAttrReq = 0x06
	pduServiceSearchAttrRsp = 0x07

	pduSvcRegisterReq   = 0x75
	pduSvcRegisterRsp   = 0x76
	pduSvcUnregisterReq = 0x77
	pduSvcUnregisterRsp = 0x78
)

// recordPersist is the flags-byte value prefixed onto a pduSvcRegisterReq's
// params to ask the local SDP server to retain the record across a
// deactivate/reactivate cycle, mirroring hidsdp.c's SDP_RECORD_PERSIST.
const recordPersist = 0x01

// Client is a single transaction-oriented connection to the local SDP
// server, conventionally reached over L2CAP PSM 1 against the adapter's
// own address.
type Client struct {
	conn  *l2cap.Conn
	txSeq uint16
}

// Connect opens a control connection to the local SDP server on local's
// own address.
func Connect(local l2cap.Addr) (*Client, error) {
	conn, err := l2cap.Dial(local, local, ServicePSM)
	if err != nil {
		return nil, fmt.Errorf("sdp: connect local SDP server: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the control connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextTx() uint16 {
	c.txSeq++
	return c.txSeq
}

func (c *Client) roundTrip(pduID byte, params []byte) (respPDU byte, payload []byte, err error) {
	tx := c.nextTx()
	req := make([]byte, 0, 5+len(params))
	req = append(req, pduID)
	req = binary.BigEndian.AppendUint16(req, tx)
	req = binary.BigEndian.AppendUint16(req, uint16(len(params)))
	req = append(req, params...)

	if _, err := c.conn.Write(req); err != nil {
		return 0, nil, fmt.Errorf("sdp: write request: %w", err)
	}

	buf := make([]byte, 4096)
	n, err := c.conn.Read(buf)
	if err != nil {
		return 0, nil, fmt.Errorf("sdp: read response: %w", err)
	}
	if n < 5 {
		return 0, nil, fmt.Errorf("sdp: short response")
	}
	respPDU = buf[0]
	paramLen := binary.BigEndian.Uint16(buf[3:5])
	if int(paramLen) > n-5 {
		return 0, nil, fmt.Errorf("sdp: truncated response")
	}
	return respPDU, buf[5 : 5+paramLen], nil
}

// Register publishes record and returns the handle the server assigned it.
// persist marks the record to survive the kind of deactivate/reactivate
// cycle DeactivateOtherServices and ReactivateOtherServices drive; the HID
// record itself registers non-persistent, matching hidsdp.c's own
// sdp_device_record_register(..., 0) call, while records reactivated after
// a deactivation pass register persistent like hidsdp.c's
// SDP_RECORD_PERSIST call.
func (c *Client) Register(record []byte, persist bool) (handle uint32, err error) {
	flags := byte(0)
	if persist {
		flags = recordPersist
	}
	params := make([]byte, 0, 1+len(record))
	params = append(params, flags)
	params = append(params, record...)

	rspPDU, payload, err := c.roundTrip(pduSvcRegisterReq, params)
	if err != nil {
		return 0, err
	}
	if rspPDU != pduSvcRegisterRsp || len(payload) < 4 {
		return 0, fmt.Errorf("sdp: unexpected register response")
	}
	return binary.BigEndian.Uint32(payload[:4]), nil
}

// Unregister removes the record identified by handle.
func (c *Client) Unregister(handle uint32) error {
	params := binary.BigEndian.AppendUint32(nil, handle)
	rspPDU, payload, err := c.roundTrip(pduSvcUnregisterReq, params)
	if err != nil {
		return err
	}
	if rspPDU != pduSvcUnregisterRsp || len(payload) < 1 || payload[0] != 0 {
		return fmt.Errorf("sdp: unregister handle %d failed", handle)
	}
	return nil
}

// Record pairs a server-assigned handle with its raw attribute bytes, as
// retained across a DeactivateOtherServices/ReactivateOtherServices cycle.
type Record struct {
	Handle uint32
	Raw    []byte
}

// SearchPublicBrowseGroup enumerates every record currently registered
// under the public browse group, the set DeactivateOtherServices snapshots
// before tearing records down.
func (c *Client) SearchPublicBrowseGroup() ([]Record, error) {
	params := seq(uuid16(classIDPublicBrowseGroup))
	params = append(params, u16(0xffff)...) // max attribute byte count
	params = append(params, seq(u32(0x0000ffff))...) // attribute ID list: all
	params = append(params, 0x00) // no continuation state

	rspPDU, payload, err := c.roundTrip(pduServiceSearchAttrReq, params)
	if err != nil {
		return nil, err
	}
	if rspPDU != pduServiceSearchAttrRsp {
		return nil, fmt.Errorf("sdp: unexpected search response")
	}
	return parseRecordList(payload), nil
}

// parseRecordList walks the response's outer sequence of per-record
// attribute sequences and pulls the ServiceRecordHandle (attribute 0x0000)
// out of each, keeping the full sequence bytes as Raw for later replay.
func parseRecordList(payload []byte) []Record {
	if len(payload) < 2 {
		return nil
	}
	// Skip the 2-byte "attribute list byte count" prefix if present.
	body := payload
	if len(body) >= 2 {
		body = body[2:]
	}
	var out []Record
	i := 0
	for i < len(body) {
		size, ok := deElementSize(body[i:])
		if !ok || size == 0 {
			break
		}
		raw := body[i : i+size]
		handle, _ := findHandleAttr(raw)
		out = append(out, Record{Handle: handle, Raw: raw})
		i += size
	}
	return out
}

// deElementSize returns the total byte length (header+payload) of the data
// element starting at b, for the short/medium/long variable-length forms
// this package ever emits or receives.
func deElementSize(b []byte) (int, bool) {
	if len(b) < 1 {
		return 0, false
	}
	typ := b[0] >> 3
	sizeIdx := b[0] & 0x07
	switch {
	case typ == 0: // nil
		return 1, true
	case sizeIdx <= 4:
		fixed := []int{1, 2, 4, 8, 16}
		return 1 + fixed[sizeIdx], true
	case sizeIdx == 5:
		if len(b) < 2 {
			return 0, false
		}
		return 2 + int(b[1]), true
	case sizeIdx == 6:
		if len(b) < 3 {
			return 0, false
		}
		return 3 + int(binary.BigEndian.Uint16(b[1:3])), true
	default:
		if len(b) < 5 {
			return 0, false
		}
		return 5 + int(binary.BigEndian.Uint32(b[1:5])), true
	}
}

// findHandleAttr scans a single record's attribute sequence for the
// ServiceRecordHandle attribute (ID 0x0000) and returns its value.
func findHandleAttr(recordSeq []byte) (uint32, bool) {
	hdrSize, ok := deElementSize(recordSeq)
	if !ok {
		return 0, false
	}
	body := recordSeq[headerLen(recordSeq[0]):hdrSize]
	i := 0
	for i < len(body) {
		idSize, ok := deElementSize(body[i:])
		if !ok {
			return 0, false
		}
		idBytes := body[i : i+idSize]
		id := uint16(0)
		if len(idBytes) >= 3 {
			id = binary.BigEndian.Uint16(idBytes[1:3])
		}
		i += idSize
		valSize, ok := deElementSize(body[i:])
		if !ok {
			return 0, false
		}
		valBytes := body[i : i+valSize]
		if id == 0x0000 && len(valBytes) >= 5 {
			return binary.BigEndian.Uint32(valBytes[1:5]), true
		}
		i += valSize
	}
	return 0, false
}

func headerLen(hdr byte) int {
	sizeIdx := hdr & 0x07
	switch {
	case sizeIdx <= 4:
		return 1
	case sizeIdx == 5:
		return 2
	case sizeIdx == 6:
		return 3
	default:
		return 5
	}
}
