// Package descriptor holds the fixed HID report descriptor this daemon
// advertises to every connecting host. The byte layout here is the
// authoritative contract for internal/hid/codec: changing a bit here
// without updating the matching encoder breaks every paired host.
package descriptor

// Report IDs, one per top-level HID application declared below.
const (
	ReportIDKeyboard      = 0x01
	ReportIDSystemKeys    = 0x10
	ReportIDHwKeys        = 0x11
	ReportIDMediaKeys     = 0x12
	ReportIDAppControl    = 0x13
	ReportIDMouse         = 0x02
	ReportIDMouseFeature  = 0x22
	ReportIDMouseAbsolute = 0x23
)

// ReportLengths declares the total on-wire payload length (report ID
// byte included) for every input report the descriptor declares; the
// mouse feature report (0x22) is not listed.
// internal/hid/codec's encoders must produce exactly these lengths —
// this is the table TestEncodedLengthsMatchDescriptor cross-checks
// against each EncodeXxx function's output.
var ReportLengths = map[byte]int{
	ReportIDKeyboard:      9,
	ReportIDMouse:         8,
	ReportIDMouseAbsolute: 6,
	ReportIDSystemKeys:    2,
	ReportIDHwKeys:        2,
	ReportIDMediaKeys:     2,
	ReportIDAppControl:    2,
}

// Raw HID report descriptor item opcodes, named after the upstream
// bluectrld hiddescriptor.h constants this descriptor was ported from.
const (
	collection1b    = 0xa1
	collectionEnd   = 0xc0
	collvPhysical   = 0x00
	collvApp        = 0x01

	usagePage1b = 0x05
	upvGenDesk  = 0x01
	upvKeyboard = 0x07
	upvLED      = 0x08
	upvButton   = 0x09
	upvConsumer = 0x0c

	usage1b        = 0x09
	usagev2bPrefix = 0x0a
	usagevPointer  = 0x01
	usagevMouse    = 0x02
	usagevKeyboard = 0x06
	usagevX        = 0x30
	usagevY        = 0x31
	usagevWheel    = 0x38
	usagevResMulti = 0x48
	usagevSysCtrl  = 0x80
	usagevSysPower = 0x81
	usagevSysSleep = 0x82

	logicalMin1b = 0x15
	logicalMin2b = 0x16
	logicalMax1b = 0x25
	logicalMax2b = 0x26

	usageMin1b = 0x19
	usageMax1b = 0x29

	physicalMin1b  = 0x35
	physicalMax1b  = 0x45
	physicalMax2b  = 0x46
	unitExponent1b = 0x55
	unit1b         = 0x65
	unitInch       = 0x13

	reportSize  = 0x75
	reportID    = 0x85
	reportCount = 0x95

	input1b   = 0x81
	output1b  = 0x91
	feature1b = 0xb1

	flagConst  = 0x01
	flagVarAbs = 0x02
	flagVarRel = 0x06
)

// Bytes is the full HID report descriptor, compiled once at init time.
// Six top-level collections share this descriptor: a keyboard, four
// consumer-control key blocks, and a combined relative/absolute mouse
// with a smooth-scroll feature report. See SPEC_FULL.md §3 for the exact
// per-report byte layout this must agree with.
var Bytes = build()

func build() []byte {
	var b []byte

	// --- Keyboard (report 0x01) ---
	b = append(b,
		usagePage1b, upvGenDesk,
		usage1b, usagevKeyboard,
		collection1b, collvApp,
		reportID, ReportIDKeyboard,

		// Modifier byte: 8 single-bit usages 0xE0-0xE7.
		usagePage1b, upvKeyboard,
		usageMin1b, 0xE0,
		0x29, 0xE7, // usage max
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportSize, 0x01,
		reportCount, 0x08,
		input1b, flagVarAbs,

		// Reserved byte.
		reportSize, 0x08,
		reportCount, 0x01,
		input1b, flagConst,

		// 6 key codes, each a full byte, array form (logical max 255).
		reportSize, 0x08,
		reportCount, 0x06,
		logicalMin1b, 0x00,
		0x26, 0xFF, 0x00, // logical max 2b = 255
		usagePage1b, upvKeyboard,
		usageMin1b, 0x00,
		0x29, 0xFF, // usage max
		input1b, 0x00, // data, array, abs

		// LED output report: 5 single-bit LEDs + 3 const pad.
		reportCount, 0x05,
		reportSize, 0x01,
		usagePage1b, upvLED,
		usageMin1b, 0x01,
		0x29, 0x05,
		output1b, flagVarAbs,
		reportCount, 0x01,
		reportSize, 0x03,
		output1b, flagConst,

		collectionEnd,
	)

	// --- Single-byte key blocks: System keys via the consumerBitsApp
	// helper (N data bits followed by const padding), then Hardware,
	// Media, and Application-control keys via their own builders. ---
	b = append(b, consumerBitsApp(ReportIDSystemKeys, upvGenDesk, usagevSysPower, usagevSysSleep, 2)...)
	b = append(b, hwKeysApp()...)
	b = append(b, mediaKeysApp()...)
	b = append(b, appControlApp()...)

	// --- Mouse (relative, 0x02) + Mouse feature (0x22) + Mouse
	// absolute (0x23), all inside one Generic Desktop Mouse application,
	// matching how the upstream daemon groups them under one collection
	// so a single physical device exposes three report IDs.
	b = append(b, mouseApp()...)

	return b
}

// consumerBitsApp emits a minimal single-byte bitmap application used for
// the System-keys block (Power, Sleep).
func consumerBitsApp(reportIDVal byte, page byte, u1, u2 byte, dataBits int) []byte {
	pad := 8 - dataBits
	return []byte{
		usagePage1b, upvGenDesk,
		usage1b, usagevSysCtrl,
		collection1b, collvApp,
		reportID, reportIDVal,

		usagePage1b, page,
		usage1b, u1,
		usage1b, u2,
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportSize, 0x01,
		reportCount, byte(dataBits),
		input1b, flagVarAbs,

		reportSize, byte(pad),
		reportCount, 0x01,
		input1b, flagConst,

		collectionEnd,
	}
}

// hwKeysApp: 3 const + Eject bit + 4 const (report 0x11).
func hwKeysApp() []byte {
	return []byte{
		usagePage1b, upvConsumer,
		usage1b, 0x01, // Consumer Control
		collection1b, collvApp,
		reportID, ReportIDHwKeys,

		reportSize, 0x01,
		reportCount, 0x03,
		input1b, flagConst,

		usagePage1b, upvConsumer,
		usage1b, 0xB8, // Eject
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportCount, 0x01,
		reportSize, 0x01,
		input1b, flagVarAbs,

		reportCount, 0x04,
		reportSize, 0x01,
		input1b, flagConst,

		collectionEnd,
	}
}

// mediaKeysApp: 8 independent single-bit usages (report 0x12).
func mediaKeysApp() []byte {
	usages := []byte{0xCD, 0xB3, 0xB4, 0xB5, 0xB6, 0xE2, 0xE9, 0xEA}
	out := []byte{
		usagePage1b, upvConsumer,
		usage1b, 0x01,
		collection1b, collvApp,
		reportID, ReportIDMediaKeys,
		usagePage1b, upvConsumer,
	}
	for _, u := range usages {
		out = append(out, usage1b, u)
	}
	out = append(out,
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportSize, 0x01,
		reportCount, byte(len(usages)),
		input1b, flagVarAbs,
		collectionEnd,
	)
	return out
}

// appControlApp: Home/Back/Forward bits + 5 const (report 0x13).
func appControlApp() []byte {
	return []byte{
		usagePage1b, upvConsumer,
		usage1b, 0x01,
		collection1b, collvApp,
		reportID, ReportIDAppControl,

		usagePage1b, upvConsumer,
		usage1b, 0x23, // AC Home
		usage1b, 0x24, // AC Back
		usage1b, 0x25, // AC Forward
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportSize, 0x01,
		reportCount, 0x03,
		input1b, flagVarAbs,

		reportSize, 0x01,
		reportCount, 0x05,
		input1b, flagConst,

		collectionEnd,
	}
}

// mouseApp emits the Mouse application with three report IDs: relative
// input (0x02), a feature report for smooth-scroll resolution multipliers
// (0x22), and an absolute input report (0x23).
func mouseApp() []byte {
	return []byte{
		usagePage1b, upvGenDesk,
		usage1b, usagevMouse,
		collection1b, collvApp,
		usage1b, usagevPointer,
		collection1b, collvPhysical,

		// --- Relative report (0x02) ---
		reportID, ReportIDMouse,
		usagePage1b, upvButton,
		usageMin1b, 0x01,
		0x29, 0x05, // usage max: button 5
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportCount, 0x05,
		reportSize, 0x01,
		input1b, flagVarAbs,
		reportCount, 0x01,
		reportSize, 0x03,
		input1b, flagConst,

		usagePage1b, upvGenDesk,
		usage1b, usagevX,
		usage1b, usagevY,
		logicalMin1b, 0xFF, // treated as signed -1 won't be used; real range below
		logicalMax1b, 0x01,
		0x16, 0x01, 0xF8, // logical min 2b = -2047
		0x26, 0xFF, 0x07, // logical max 2b = 2047
		reportSize, 0x10,
		reportCount, 0x02,
		input1b, flagVarRel,

		usage1b, usagevWheel,
		logicalMin1b, 0x81, // -127
		logicalMax1b, 0x7F, // 127
		reportSize, 0x08,
		reportCount, 0x01,
		input1b, flagVarRel,

		usagePage1b, upvConsumer,
		0x0a, 0x38, 0x02, // usage AC Pan (2-byte usage)
		logicalMin1b, 0x81,
		logicalMax1b, 0x7F,
		reportSize, 0x08,
		reportCount, 0x01,
		input1b, flagVarRel,

		// --- Feature report (0x22): resolution multiplier pair ---
		reportID, ReportIDMouseFeature,
		usagePage1b, upvGenDesk,
		0x0a, 0x48, 0x00, // Resolution Multiplier (2-byte usage)
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		physicalMin1b, 0x00,
		physicalMax1b, 0x01,
		reportSize, 0x02,
		reportCount, 0x01,
		feature1b, flagVarAbs, // vertical multiplier, bits 0-1
		reportSize, 0x01,
		reportCount, 0x01,
		feature1b, flagConst, // reserved bit 2
		0x0a, 0x48, 0x00,
		reportSize, 0x02,
		reportCount, 0x01,
		feature1b, flagVarAbs, // horizontal multiplier, bits 3-4
		reportSize, 0x03,
		reportCount, 0x01,
		feature1b, flagConst, // reserved bits 5-7

		// --- Absolute report (0x23) ---
		reportID, ReportIDMouseAbsolute,
		usagePage1b, upvButton,
		usageMin1b, 0x01,
		0x29, 0x05,
		logicalMin1b, 0x00,
		logicalMax1b, 0x01,
		reportCount, 0x05,
		reportSize, 0x01,
		input1b, flagVarAbs,
		reportCount, 0x01,
		reportSize, 0x03,
		input1b, flagConst,

		usagePage1b, upvGenDesk,
		unit1b, unitInch,
		unitExponent1b, 0x0E, // 10^-2 inch units
		usage1b, usagevX,
		usage1b, usagevY,
		logicalMin1b, 0x00,
		0x26, 0xFF, 0x07, // logical max 2047
		physicalMin1b, 0x00,
		physicalMax2b, 0xF4, 0x01, // 500 units = 5.00 inch
		reportSize, 0x10,
		reportCount, 0x02,
		input1b, flagVarAbs,
		unit1b, 0x00, // reset unit
		unitExponent1b, 0x00,

		collectionEnd, // physical
		collectionEnd, // application
	}
}
