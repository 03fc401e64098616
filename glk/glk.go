// Package glk defines the I/O capability boundary between the Glulx
// virtual machine and the text/window service that renders its output.
//
// The VM never renders anything itself. Every window, stream, file, event
// and timer operation is forwarded through the Capability interface, and
// every operation is allowed to answer with its null result (zero id, zero
// count, false) when the underlying service does not support it.
package glk

// ---------------------------------------------------------------------------
// Object identifiers
// ---------------------------------------------------------------------------

// WindowID names a window owned by the capability. Zero means no window.
type WindowID uint32

// StreamID names a stream owned by the capability. Zero means no stream.
type StreamID uint32

// FileRefID names a file reference owned by the capability. Zero means none.
type FileRefID uint32

// SoundChannelID names a sound channel. Zero means none.
type SoundChannelID uint32

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// EventType identifies the kind of an Event.
type EventType uint32

const (
	EvtNone         EventType = 0
	EvtTimer        EventType = 1
	EvtCharInput    EventType = 2
	EvtLineInput    EventType = 3
	EvtMouseInput   EventType = 4
	EvtArrange      EventType = 5
	EvtRedraw       EventType = 6
	EvtSoundNotify  EventType = 7
	EvtHyperlink    EventType = 8
	EvtVolumeNotify EventType = 9
)

// Event is the four-word record delivered by Select and SelectPoll.
// For line input Val1 is the number of characters written into the
// request buffer.
type Event struct {
	Type EventType
	Win  WindowID
	Val1 uint32
	Val2 uint32
}

// StreamResult reports the character counts of a closed stream.
type StreamResult struct {
	ReadCount  uint32
	WriteCount uint32
}

// TimeVal is a timestamp split into high and low seconds plus microseconds.
type TimeVal struct {
	HighSec  int32
	LowSec   uint32
	Microsec int32
}

// Date is a broken-down calendar date.
type Date struct {
	Year     int32
	Month    int32
	Day      int32
	Weekday  int32
	Hour     int32
	Minute   int32
	Second   int32
	Microsec int32
}

// Buffer is VM memory lent to the capability for the life of a memory
// stream or a pending line-input request. Exactly one of Bytes and Runes is
// non-nil. The VM copies the contents back into its address space when the
// loan ends; the capability only ever sees this copy.
type Buffer struct {
	Handle uint32
	Bytes  []byte
	Runes  []uint32
}

// Len returns the capacity of the buffer in characters.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	if b.Runes != nil {
		return len(b.Runes)
	}
	return len(b.Bytes)
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// Gestalt selectors.
const (
	GestaltVersion              uint32 = 0
	GestaltCharInput            uint32 = 1
	GestaltLineInput            uint32 = 2
	GestaltCharOutput           uint32 = 3
	GestaltMouseInput           uint32 = 4
	GestaltTimer                uint32 = 5
	GestaltGraphics             uint32 = 6
	GestaltDrawImage            uint32 = 7
	GestaltSound                uint32 = 8
	GestaltSoundVolume          uint32 = 9
	GestaltSoundNotify          uint32 = 10
	GestaltHyperlinks           uint32 = 11
	GestaltHyperlinkInput       uint32 = 12
	GestaltSoundMusic           uint32 = 13
	GestaltGraphicsTransparency uint32 = 14
	GestaltUnicode              uint32 = 15
	GestaltUnicodeNorm          uint32 = 16
	GestaltLineInputEcho        uint32 = 17
	GestaltLineTerminators      uint32 = 18
	GestaltLineTerminatorKey    uint32 = 19
	GestaltDateTime             uint32 = 20
	GestaltSound2               uint32 = 21
	GestaltResourceStream       uint32 = 22
)

// Gestalt CharOutput answers.
const (
	CharOutputCannotPrint uint32 = 0
	CharOutputApproxPrint uint32 = 1
	CharOutputExactPrint  uint32 = 2
)

// Window types.
const (
	WinTypeAll        uint32 = 0
	WinTypePair       uint32 = 1
	WinTypeBlank      uint32 = 2
	WinTypeTextBuffer uint32 = 3
	WinTypeTextGrid   uint32 = 4
	WinTypeGraphics   uint32 = 5
)

// Window split methods.
const (
	WinMethodLeft         uint32 = 0x00
	WinMethodRight        uint32 = 0x01
	WinMethodAbove        uint32 = 0x02
	WinMethodBelow        uint32 = 0x03
	WinMethodDirMask      uint32 = 0x0f
	WinMethodFixed        uint32 = 0x10
	WinMethodProportional uint32 = 0x20
	WinMethodDivisionMask uint32 = 0xf0
)

// File usage flags.
const (
	FileUsageData        uint32 = 0x00
	FileUsageSavedGame   uint32 = 0x01
	FileUsageTranscript  uint32 = 0x02
	FileUsageInputRecord uint32 = 0x03
	FileUsageTypeMask    uint32 = 0x0f
	FileUsageTextMode    uint32 = 0x100
	FileUsageBinaryMode  uint32 = 0x000
)

// File modes.
const (
	FileModeWrite       uint32 = 0x01
	FileModeRead        uint32 = 0x02
	FileModeReadWrite   uint32 = 0x03
	FileModeWriteAppend uint32 = 0x05
)

// Seek modes.
const (
	SeekModeStart   uint32 = 0
	SeekModeCurrent uint32 = 1
	SeekModeEnd     uint32 = 2
)

// Styles.
const (
	StyleNormal       uint32 = 0
	StyleEmphasized   uint32 = 1
	StylePreformatted uint32 = 2
	StyleHeader       uint32 = 3
	StyleSubheader    uint32 = 4
	StyleAlert        uint32 = 5
	StyleNote         uint32 = 6
	StyleBlockQuote   uint32 = 7
	StyleInput        uint32 = 8
	StyleUser1        uint32 = 9
	StyleUser2        uint32 = 10
	StyleNumStyles    uint32 = 11
)

// Special keycodes delivered by character input.
const (
	KeycodeUnknown  uint32 = 0xffffffff
	KeycodeLeft     uint32 = 0xfffffffe
	KeycodeRight    uint32 = 0xfffffffd
	KeycodeUp       uint32 = 0xfffffffc
	KeycodeDown     uint32 = 0xfffffffb
	KeycodeReturn   uint32 = 0xfffffffa
	KeycodeDelete   uint32 = 0xfffffff9
	KeycodeEscape   uint32 = 0xfffffff8
	KeycodeTab      uint32 = 0xfffffff7
	KeycodePageUp   uint32 = 0xfffffff6
	KeycodePageDown uint32 = 0xfffffff5
	KeycodeHome     uint32 = 0xfffffff4
	KeycodeEnd      uint32 = 0xfffffff3
)
