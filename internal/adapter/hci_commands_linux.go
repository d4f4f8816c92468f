//go:build linux

package adapter

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// HCI command group/opcode constants, from <linux/hci.h>. These are the
// three commands hidhci.c issues through hci_send_req: Write Class of
// Device, Read Class of Device, and Write Scan Enable, all OGF 0x03 (Host
// Controller & Baseband).
const (
	ogfHostCtl = 0x03

	ocfWriteScanEnable   = 0x001a
	ocfReadClassOfDev    = 0x0023
	ocfWriteClassOfDev   = 0x0024

	hciCommandPkt = 0x01
	hciEventPkt   = 0x04

	hciEvtCmdComplete = 0x0e

	// SOL_HCI / HCI_FILTER, used to restrict the socket to command-complete
	// events the way hci_send_req sets up its reply filter.
	solHCI    = 0
	hciFilter = 2
)

func opcode(ogf, ocf uint16) uint16 {
	return ogf<<10 | ocf
}

// hciFilterStruct mirrors struct hci_filter: a type mask, event mask pair,
// and opcode, used to tell the kernel which packets to deliver to this
// socket.
type hciFilterStruct struct {
	TypeMask  uint32
	EventMask [2]uint32
	Opcode    uint16
}

func setCommandCompleteFilter(fd int) error {
	var f hciFilterStruct
	f.TypeMask = 1 << hciEventPkt
	f.EventMask[hciEvtCmdComplete>>5] |= 1 << (hciEvtCmdComplete & 31)
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(solHCI), uintptr(hciFilter),
		uintptr(unsafe.Pointer(&f)), unsafe.Sizeof(f), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// sendCommand writes an HCI command packet and waits for its
// Command-Complete event, the same round trip hci_send_req performs
// synchronously in the C daemon. It returns the event's return parameters.
func (a *hciAdapter) sendCommand(ocf uint16, params []byte) ([]byte, error) {
	if err := setCommandCompleteFilter(a.fd); err != nil {
		return nil, fmt.Errorf("adapter: hci filter: %w", err)
	}

	pkt := make([]byte, 0, 4+len(params))
	pkt = append(pkt, hciCommandPkt)
	op := opcode(ogfHostCtl, ocf)
	pkt = binary.LittleEndian.AppendUint16(pkt, op)
	pkt = append(pkt, byte(len(params)))
	pkt = append(pkt, params...)

	if _, err := unix.Write(a.fd, pkt); err != nil {
		return nil, fmt.Errorf("adapter: write hci command: %w", err)
	}

	buf := make([]byte, 260)
	for {
		n, err := unix.Read(a.fd, buf)
		if err != nil {
			return nil, fmt.Errorf("adapter: read hci event: %w", err)
		}
		if n < 1 || buf[0] != hciEventPkt {
			continue
		}
		evt := buf[1:n]
		if len(evt) < 2 || evt[0] != hciEvtCmdComplete {
			continue
		}
		// event[1] = param length, event[2] = num_hci_cmd_pkts, event[3:5] = opcode
		if len(evt) < 5 {
			continue
		}
		gotOp := binary.LittleEndian.Uint16(evt[3:5])
		if gotOp != op {
			continue
		}
		return evt[5:], nil
	}
}

func (a *hciAdapter) readClassOfDevCommand() (uint32, error) {
	ret, err := a.sendCommand(ocfReadClassOfDev, nil)
	if err != nil {
		return 0, err
	}
	// return params: status(1) + class_of_dev(3), little-endian.
	if len(ret) < 4 {
		return 0, fmt.Errorf("adapter: short read class of device reply")
	}
	if ret[0] != 0 {
		return 0, fmt.Errorf("adapter: read class of device failed: status 0x%02x", ret[0])
	}
	return uint32(ret[1]) | uint32(ret[2])<<8 | uint32(ret[3])<<16, nil
}

func (a *hciAdapter) writeClassOfDevCommand(cls uint32) error {
	params := []byte{byte(cls), byte(cls >> 8), byte(cls >> 16)}
	ret, err := a.sendCommand(ocfWriteClassOfDev, params)
	if err != nil {
		return err
	}
	if len(ret) < 1 || ret[0] != 0 {
		return fmt.Errorf("adapter: write class of device failed")
	}
	return nil
}

func (a *hciAdapter) writeScanEnableCommand(mode byte) error {
	ret, err := a.sendCommand(ocfWriteScanEnable, []byte{mode})
	if err != nil {
		return err
	}
	if len(ret) < 1 || ret[0] != 0 {
		return fmt.Errorf("adapter: write scan enable failed")
	}
	return nil
}
