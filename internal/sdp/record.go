package sdp

import (
	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
	"github.com/ronsdev/btkeyd/internal/l2cap"
)

// Attribute IDs from the Bluetooth HID Profile specification, assigned
// values hidsdp.c writes via the HIDLangID* family of sdp_attr_add calls.
const (
	attrServiceClassIDList          = 0x0001
	attrProtocolDescriptorList      = 0x0004
	attrBrowseGroupList             = 0x0005
	attrLanguageBaseAttributeIDList = 0x0006
	attrProfileDescriptorList       = 0x0009
	attrAdditionalProtocolDescLists = 0x000d
	attrServiceName                 = 0x0100
	attrServiceDescription          = 0x0101
	attrProviderName                = 0x0102
	attrHIDDeviceReleaseNumber      = 0x0200
	attrHIDParserVersion            = 0x0201
	attrHIDDeviceSubclass           = 0x0202
	attrHIDCountryCode              = 0x0203
	attrHIDVirtualCable             = 0x0204
	attrHIDReconnectInitiate        = 0x0205
	attrHIDDescriptorList           = 0x0206
	attrHIDLangIDBaseList           = 0x0207
	attrHIDBatteryPower             = 0x0209
	attrHIDRemoteWake               = 0x020a
	attrHIDProfileVersion           = 0x020b
	attrHIDSupervisionTimeout       = 0x020c
	attrHIDNormallyConnectable      = 0x020d
	attrHIDBootDevice               = 0x020e

	classIDHumanInterfaceDevice = 0x1124
	classIDL2CAP                = 0x0100
	classIDHIDP                 = 0x0011
	classIDPublicBrowseGroup    = 0x1002

	langIDEnglishUS    = 0x0409
	langBaseAttrIDPri  = 0x0100
	langCodeEnglish    = 0x656e // ISO 639 "en"
	langEncodingUTF8   = 0x006a // IANA MIBenum for UTF-8
	hidDescriptorType  = 0x22

	hidServiceName        = "btkeyd"
	hidProviderName       = "https://github.com/ronsdev/btkeyd"
	hidServiceDescription = "Virtual HID"

	hidProfileVersion     = 0x0100 // 1.0.0
	hidParserVersion      = 0x0111 // 1.1.1
	hidDeviceSubclass     = 0xC0   // combo keyboard/pointer
	hidCountryCode        = 13     // International (ISO)
	hidVirtualCable       = false
	hidReconnectInitiate  = true
	hidBatteryPower       = true
	hidRemoteWake         = true
	hidSupervisionTimeout = 8000
	hidBootDevice         = true
)

// protocolDescriptorList builds the access-protocol sequence for one PSM:
// an L2CAP layer carrying the PSM, wrapped by the HIDP layer above it.
func protocolDescriptorList(psm uint16) []byte {
	return seq(
		seq(uuid16(classIDL2CAP), u16(psm)),
		seq(uuid16(classIDHIDP)),
	)
}

// BuildRecord composes the full HID service record attribute sequence,
// ready to hand to a Register call. normallyConnectable reflects whether
// the L2CAP listener is currently up.
func BuildRecord(normallyConnectable bool) []byte {
	return seq(
		attr(attrServiceClassIDList, seq(uuid16(classIDHumanInterfaceDevice))),
		attr(attrProtocolDescriptorList, protocolDescriptorList(l2cap.PSMControl)),
		attr(attrBrowseGroupList, seq(uuid16(classIDPublicBrowseGroup))),
		attr(attrLanguageBaseAttributeIDList, seq(u16(langCodeEnglish), u16(langEncodingUTF8), u16(langBaseAttrIDPri))),
		attr(attrProfileDescriptorList, seq(seq(uuid16(classIDHumanInterfaceDevice), u16(hidProfileVersion)))),
		attr(attrAdditionalProtocolDescLists, seq(protocolDescriptorList(l2cap.PSMInterrupt))),
		attr(attrServiceName, text(hidServiceName)),
		attr(attrServiceDescription, text(hidServiceDescription)),
		attr(attrProviderName, text(hidProviderName)),
		attr(attrHIDDeviceReleaseNumber, u16(hidProfileVersion)),
		attr(attrHIDParserVersion, u16(hidParserVersion)),
		attr(attrHIDDeviceSubclass, u8(hidDeviceSubclass)),
		attr(attrHIDCountryCode, u8(hidCountryCode)),
		attr(attrHIDVirtualCable, boolean(hidVirtualCable)),
		attr(attrHIDReconnectInitiate, boolean(hidReconnectInitiate)),
		attr(attrHIDDescriptorList, seq(seq(u8(hidDescriptorType), raw(descriptor.Bytes)))),
		attr(attrHIDLangIDBaseList, seq(seq(u16(langIDEnglishUS), u16(langBaseAttrIDPri)))),
		attr(attrHIDBatteryPower, boolean(hidBatteryPower)),
		attr(attrHIDRemoteWake, boolean(hidRemoteWake)),
		attr(attrHIDProfileVersion, u16(hidProfileVersion)),
		attr(attrHIDSupervisionTimeout, u16(hidSupervisionTimeout)),
		attr(attrHIDNormallyConnectable, boolean(normallyConnectable)),
		attr(attrHIDBootDevice, boolean(hidBootDevice)),
	)
}
