package sdp

import (
	"fmt"
	"time"

	"github.com/ronsdev/btkeyd/internal/adapter"
	"github.com/ronsdev/btkeyd/internal/l2cap"
)

// Publisher owns the HID service record lifecycle and the peer-service
// save/restore dance, against one adapter identity.
type Publisher struct {
	identity adapter.Identity
	hw       adapter.Adapter

	client  *Client
	handle  uint32
	active  bool

	savedRecords []Record
	savedClass   uint32
	classChanged bool
}

// NewPublisher opens a control connection to the local SDP server for
// identity's adapter.
func NewPublisher(identity adapter.Identity, hw adapter.Adapter) (*Publisher, error) {
	c, err := Connect(l2cap.Addr(identity.Addr))
	if err != nil {
		return nil, err
	}
	return &Publisher{identity: identity, hw: hw, client: c}, nil
}

// Close tears down the SDP control connection. Callers should Unregister
// first if the record is still active.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Register publishes the HID service record. normallyConnectable should
// reflect whether the L2CAP listener is currently up.
func (p *Publisher) Register(normallyConnectable bool) error {
	if p.active {
		return fmt.Errorf("sdp: HID record already registered")
	}
	h, err := p.client.Register(BuildRecord(normallyConnectable), false)
	if err != nil {
		return err
	}
	p.handle = h
	p.active = true
	return nil
}

// Unregister removes the HID service record.
func (p *Publisher) Unregister() error {
	if !p.active {
		return nil
	}
	err := p.client.Unregister(p.handle)
	p.active = false
	return err
}

// DeactivateOtherServices snapshots and unregisters every record on the
// adapter except this daemon's own HID record, then waits for the
// adapter's Class-of-Device service bits to clear.
func (p *Publisher) DeactivateOtherServices() error {
	records, err := p.client.SearchPublicBrowseGroup()
	if err != nil {
		return fmt.Errorf("sdp: browse group search: %w", err)
	}

	p.savedRecords = p.savedRecords[:0]
	var firstErr error
	for _, r := range records {
		if r.Handle == p.handle {
			continue
		}
		p.savedRecords = append(p.savedRecords, r)
		if err := p.client.Unregister(r.Handle); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sdp: unregister handle %d: %w", r.Handle, err)
		}
	}

	adapter.WaitForEmptyServiceClass(p.hw, time.Second)
	return firstErr
}

// ReactivateOtherServices re-registers every record DeactivateOtherServices
// retained, in order, then frees the snapshot. Each record is registered
// persistent, matching hidsdp.c's SDP_RECORD_PERSIST reactivation call.
// The first registration error is returned; later ones are
// tolerated so a single broken record doesn't strand the rest.
func (p *Publisher) ReactivateOtherServices() error {
	var firstErr error
	for _, r := range p.savedRecords {
		if _, err := p.client.Register(r.Raw, true); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sdp: reregister handle %d: %w", r.Handle, err)
		}
	}
	p.savedRecords = nil
	return firstErr
}

// SetHIDDeviceClass switches the adapter's Class-of-Device to "Peripheral,
// Keyboard", saving the prior value so ResetDeviceClass can restore it.
func (p *Publisher) SetHIDDeviceClass() error {
	cur, err := p.hw.DeviceClass()
	if err != nil {
		return err
	}
	p.savedClass = cur
	p.classChanged = true
	return p.hw.SetDeviceClass(adapter.PeripheralKeyboardClass)
}

// ResetDeviceClass restores the Class-of-Device SetHIDDeviceClass
// overwrote. A no-op if the class was never changed.
func (p *Publisher) ResetDeviceClass() error {
	if !p.classChanged {
		return nil
	}
	p.classChanged = false
	return p.hw.SetDeviceClass(p.savedClass)
}
