package glk

// Capability is the I/O service the VM drives through the glk opcode and
// the streaming opcodes in capability mode.
//
// Implementations own every window, stream and file reference; the VM only
// ever holds their ids. Any method may return its zero result to mean
// "unsupported" or "failed", and the VM reports that back to the running
// program rather than faulting.
type Capability interface {
	// Exit ends the session. The VM halts after calling it.
	Exit()
	// Tick is called frequently while bytecode runs.
	Tick()
	// Gestalt answers a capability probe. arr may be nil.
	Gestalt(sel, val uint32, arr []uint32) uint32

	// Character and buffer case conversion.
	CharToLower(ch uint32) uint32
	CharToUpper(ch uint32) uint32
	BufferToLowerCaseUni(buf []uint32, numChars uint32) uint32
	BufferToUpperCaseUni(buf []uint32, numChars uint32) uint32
	BufferToTitleCaseUni(buf []uint32, numChars uint32, lowerRest bool) uint32
	BufferCanonDecomposeUni(buf []uint32, numChars uint32) uint32
	BufferCanonNormalizeUni(buf []uint32, numChars uint32) uint32

	// Windows.
	WindowIterate(win WindowID) (WindowID, uint32)
	WindowGetRock(win WindowID) uint32
	WindowGetRoot() WindowID
	WindowOpen(split WindowID, method, size, winType, rock uint32) WindowID
	WindowClose(win WindowID) StreamResult
	WindowGetSize(win WindowID) (width, height uint32)
	WindowSetArrangement(win WindowID, method, size uint32, keyWin WindowID)
	WindowGetArrangement(win WindowID) (method, size uint32, keyWin WindowID)
	WindowGetType(win WindowID) uint32
	WindowGetParent(win WindowID) WindowID
	WindowGetSibling(win WindowID) WindowID
	WindowClear(win WindowID)
	WindowMoveCursor(win WindowID, x, y uint32)
	WindowGetStream(win WindowID) StreamID
	WindowSetEchoStream(win WindowID, str StreamID)
	WindowGetEchoStream(win WindowID) StreamID
	SetWindow(win WindowID)

	// Streams.
	StreamIterate(str StreamID) (StreamID, uint32)
	StreamGetRock(str StreamID) uint32
	StreamOpenFile(fref FileRefID, fmode, rock uint32, unicode bool) StreamID
	StreamOpenMemory(buf *Buffer, fmode, rock uint32) StreamID
	StreamOpenResource(fileNum, rock uint32, unicode bool) StreamID
	StreamClose(str StreamID) StreamResult
	StreamSetPosition(str StreamID, pos int32, seekMode uint32)
	StreamGetPosition(str StreamID) uint32
	StreamSetCurrent(str StreamID)
	StreamGetCurrent() StreamID

	// Output to the current stream or to an explicit one.
	PutChar(ch byte)
	PutCharStream(str StreamID, ch byte)
	PutBuffer(buf []byte)
	PutBufferStream(str StreamID, buf []byte)
	PutCharUni(ch uint32)
	PutCharStreamUni(str StreamID, ch uint32)
	PutBufferUni(buf []uint32)
	PutBufferStreamUni(str StreamID, buf []uint32)
	SetStyle(style uint32)
	SetStyleStream(str StreamID, style uint32)

	// Input from streams. Character reads return -1 at end of stream.
	GetCharStream(str StreamID) int32
	GetLineStream(str StreamID, buf []byte) uint32
	GetBufferStream(str StreamID, buf []byte) uint32
	GetCharStreamUni(str StreamID) int32
	GetLineStreamUni(str StreamID, buf []uint32) uint32
	GetBufferStreamUni(str StreamID, buf []uint32) uint32

	// Style hints.
	StylehintSet(winType, style, hint uint32, val int32)
	StylehintClear(winType, style, hint uint32)
	StyleDistinguish(win WindowID, style1, style2 uint32) bool
	StyleMeasure(win WindowID, style, hint uint32) (uint32, bool)

	// File references.
	FileRefCreateTemp(usage, rock uint32) FileRefID
	FileRefCreateByName(usage uint32, name string, rock uint32) FileRefID
	FileRefCreateByPrompt(usage, fmode, rock uint32) FileRefID
	FileRefCreateFromFileRef(usage uint32, fref FileRefID, rock uint32) FileRefID
	FileRefDestroy(fref FileRefID)
	FileRefIterate(fref FileRefID) (FileRefID, uint32)
	FileRefGetRock(fref FileRefID) uint32
	FileRefDeleteFile(fref FileRefID)
	FileRefDoesFileExist(fref FileRefID) bool

	// Events. Select blocks until an event is available; a non-nil error
	// ends the session (io.EOF for a clean end of input).
	Select() (Event, error)
	SelectPoll() Event
	RequestLineEvent(win WindowID, buf *Buffer, initLen uint32)
	RequestLineEventUni(win WindowID, buf *Buffer, initLen uint32)
	CancelLineEvent(win WindowID) Event
	RequestCharEvent(win WindowID)
	RequestCharEventUni(win WindowID)
	CancelCharEvent(win WindowID)
	RequestMouseEvent(win WindowID)
	CancelMouseEvent(win WindowID)
	RequestTimerEvents(millisecs uint32)
	RequestHyperlinkEvent(win WindowID)
	CancelHyperlinkEvent(win WindowID)
	SetEchoLineEvent(win WindowID, echo bool)
	SetTerminatorsLineEvent(win WindowID, keycodes []uint32)
	SetHyperlink(linkVal uint32)
	SetHyperlinkStream(str StreamID, linkVal uint32)

	// Graphics.
	ImageGetInfo(image uint32) (width, height uint32, ok bool)
	ImageDraw(win WindowID, image uint32, val1, val2 int32) bool
	ImageDrawScaled(win WindowID, image uint32, val1, val2 int32, width, height uint32) bool
	WindowFlowBreak(win WindowID)
	WindowEraseRect(win WindowID, left, top int32, width, height uint32)
	WindowFillRect(win WindowID, color uint32, left, top int32, width, height uint32)
	WindowSetBackgroundColor(win WindowID, color uint32)

	// Sound.
	SChannelIterate(ch SoundChannelID) (SoundChannelID, uint32)
	SChannelGetRock(ch SoundChannelID) uint32
	SChannelCreate(rock uint32) SoundChannelID
	SChannelCreateExt(rock, volume uint32) SoundChannelID
	SChannelDestroy(ch SoundChannelID)
	SChannelPlay(ch SoundChannelID, snd uint32) bool
	SChannelPlayExt(ch SoundChannelID, snd, repeats, notify uint32) bool
	SChannelStop(ch SoundChannelID)
	SChannelPause(ch SoundChannelID)
	SChannelUnpause(ch SoundChannelID)
	SChannelSetVolume(ch SoundChannelID, volume uint32)
	SChannelSetVolumeExt(ch SoundChannelID, volume, duration, notify uint32)
	SoundLoadHint(snd uint32, flag bool)

	// Date and time.
	CurrentTime() TimeVal
	CurrentSimpleTime(factor uint32) int32
	TimeToDateUTC(t TimeVal) Date
	TimeToDateLocal(t TimeVal) Date
	SimpleTimeToDateUTC(t int32, factor uint32) Date
	SimpleTimeToDateLocal(t int32, factor uint32) Date
	DateToTimeUTC(d Date) TimeVal
	DateToTimeLocal(d Date) TimeVal
	DateToSimpleTimeUTC(d Date, factor uint32) int32
	DateToSimpleTimeLocal(d Date, factor uint32) int32
}
