package glk

// Unsupported is a Capability that supports nothing. Every method returns
// its null result. Embed it to build partial capabilities and test doubles.
type Unsupported struct{}

var _ Capability = Unsupported{}

func (Unsupported) Exit()                                        {}
func (Unsupported) Tick()                                        {}
func (Unsupported) Gestalt(sel, val uint32, arr []uint32) uint32 { return 0 }

func (Unsupported) CharToLower(ch uint32) uint32 { return ch }
func (Unsupported) CharToUpper(ch uint32) uint32 { return ch }
func (Unsupported) BufferToLowerCaseUni(buf []uint32, numChars uint32) uint32 {
	return numChars
}
func (Unsupported) BufferToUpperCaseUni(buf []uint32, numChars uint32) uint32 {
	return numChars
}
func (Unsupported) BufferToTitleCaseUni(buf []uint32, numChars uint32, lowerRest bool) uint32 {
	return numChars
}
func (Unsupported) BufferCanonDecomposeUni(buf []uint32, numChars uint32) uint32 {
	return numChars
}
func (Unsupported) BufferCanonNormalizeUni(buf []uint32, numChars uint32) uint32 {
	return numChars
}

func (Unsupported) WindowIterate(win WindowID) (WindowID, uint32) { return 0, 0 }
func (Unsupported) WindowGetRock(win WindowID) uint32             { return 0 }
func (Unsupported) WindowGetRoot() WindowID                       { return 0 }
func (Unsupported) WindowOpen(split WindowID, method, size, winType, rock uint32) WindowID {
	return 0
}
func (Unsupported) WindowClose(win WindowID) StreamResult                   { return StreamResult{} }
func (Unsupported) WindowGetSize(win WindowID) (uint32, uint32)             { return 0, 0 }
func (Unsupported) WindowSetArrangement(WindowID, uint32, uint32, WindowID) {}
func (Unsupported) WindowGetArrangement(win WindowID) (uint32, uint32, WindowID) {
	return 0, 0, 0
}
func (Unsupported) WindowGetType(win WindowID) uint32              { return 0 }
func (Unsupported) WindowGetParent(win WindowID) WindowID          { return 0 }
func (Unsupported) WindowGetSibling(win WindowID) WindowID         { return 0 }
func (Unsupported) WindowClear(win WindowID)                       {}
func (Unsupported) WindowMoveCursor(win WindowID, x, y uint32)     {}
func (Unsupported) WindowGetStream(win WindowID) StreamID          { return 0 }
func (Unsupported) WindowSetEchoStream(win WindowID, str StreamID) {}
func (Unsupported) WindowGetEchoStream(win WindowID) StreamID      { return 0 }
func (Unsupported) SetWindow(win WindowID)                         {}

func (Unsupported) StreamIterate(str StreamID) (StreamID, uint32) { return 0, 0 }
func (Unsupported) StreamGetRock(str StreamID) uint32             { return 0 }
func (Unsupported) StreamOpenFile(fref FileRefID, fmode, rock uint32, unicode bool) StreamID {
	return 0
}
func (Unsupported) StreamOpenMemory(buf *Buffer, fmode, rock uint32) StreamID { return 0 }
func (Unsupported) StreamOpenResource(fileNum, rock uint32, unicode bool) StreamID {
	return 0
}
func (Unsupported) StreamClose(str StreamID) StreamResult                      { return StreamResult{} }
func (Unsupported) StreamSetPosition(str StreamID, pos int32, seekMode uint32) {}
func (Unsupported) StreamGetPosition(str StreamID) uint32                      { return 0 }
func (Unsupported) StreamSetCurrent(str StreamID)                              {}
func (Unsupported) StreamGetCurrent() StreamID                                 { return 0 }

func (Unsupported) PutChar(ch byte)                               {}
func (Unsupported) PutCharStream(str StreamID, ch byte)           {}
func (Unsupported) PutBuffer(buf []byte)                          {}
func (Unsupported) PutBufferStream(str StreamID, buf []byte)      {}
func (Unsupported) PutCharUni(ch uint32)                          {}
func (Unsupported) PutCharStreamUni(str StreamID, ch uint32)      {}
func (Unsupported) PutBufferUni(buf []uint32)                     {}
func (Unsupported) PutBufferStreamUni(str StreamID, buf []uint32) {}
func (Unsupported) SetStyle(style uint32)                         {}
func (Unsupported) SetStyleStream(str StreamID, style uint32)     {}

func (Unsupported) GetCharStream(str StreamID) int32                          { return -1 }
func (Unsupported) GetLineStream(str StreamID, buf []byte) uint32             { return 0 }
func (Unsupported) GetBufferStream(str StreamID, buf []byte) uint32           { return 0 }
func (Unsupported) GetCharStreamUni(str StreamID) int32                       { return -1 }
func (Unsupported) GetLineStreamUni(str StreamID, buf []uint32) uint32        { return 0 }
func (Unsupported) GetBufferStreamUni(str StreamID, buf []uint32) uint32      { return 0 }
func (Unsupported) StylehintSet(winType, style, hint uint32, val int32)       {}
func (Unsupported) StylehintClear(winType, style, hint uint32)                {}
func (Unsupported) StyleDistinguish(win WindowID, style1, style2 uint32) bool { return false }
func (Unsupported) StyleMeasure(win WindowID, style, hint uint32) (uint32, bool) {
	return 0, false
}

func (Unsupported) FileRefCreateTemp(usage, rock uint32) FileRefID { return 0 }
func (Unsupported) FileRefCreateByName(usage uint32, name string, rock uint32) FileRefID {
	return 0
}
func (Unsupported) FileRefCreateByPrompt(usage, fmode, rock uint32) FileRefID { return 0 }
func (Unsupported) FileRefCreateFromFileRef(usage uint32, fref FileRefID, rock uint32) FileRefID {
	return 0
}
func (Unsupported) FileRefDestroy(fref FileRefID)                     {}
func (Unsupported) FileRefIterate(fref FileRefID) (FileRefID, uint32) { return 0, 0 }
func (Unsupported) FileRefGetRock(fref FileRefID) uint32              { return 0 }
func (Unsupported) FileRefDeleteFile(fref FileRefID)                  {}
func (Unsupported) FileRefDoesFileExist(fref FileRefID) bool          { return false }

func (Unsupported) Select() (Event, error)                                        { return Event{}, nil }
func (Unsupported) SelectPoll() Event                                             { return Event{} }
func (Unsupported) RequestLineEvent(win WindowID, buf *Buffer, initLen uint32)    {}
func (Unsupported) RequestLineEventUni(win WindowID, buf *Buffer, initLen uint32) {}
func (Unsupported) CancelLineEvent(win WindowID) Event                            { return Event{} }
func (Unsupported) RequestCharEvent(win WindowID)                                 {}
func (Unsupported) RequestCharEventUni(win WindowID)                              {}
func (Unsupported) CancelCharEvent(win WindowID)                                  {}
func (Unsupported) RequestMouseEvent(win WindowID)                                {}
func (Unsupported) CancelMouseEvent(win WindowID)                                 {}
func (Unsupported) RequestTimerEvents(millisecs uint32)                           {}
func (Unsupported) RequestHyperlinkEvent(win WindowID)                            {}
func (Unsupported) CancelHyperlinkEvent(win WindowID)                             {}
func (Unsupported) SetEchoLineEvent(win WindowID, echo bool)                      {}
func (Unsupported) SetTerminatorsLineEvent(win WindowID, keycodes []uint32)       {}
func (Unsupported) SetHyperlink(linkVal uint32)                                   {}
func (Unsupported) SetHyperlinkStream(str StreamID, linkVal uint32)               {}

func (Unsupported) ImageGetInfo(image uint32) (uint32, uint32, bool) { return 0, 0, false }
func (Unsupported) ImageDraw(win WindowID, image uint32, val1, val2 int32) bool {
	return false
}
func (Unsupported) ImageDrawScaled(win WindowID, image uint32, val1, val2 int32, width, height uint32) bool {
	return false
}
func (Unsupported) WindowFlowBreak(win WindowID)                                        {}
func (Unsupported) WindowEraseRect(win WindowID, left, top int32, width, height uint32) {}
func (Unsupported) WindowFillRect(win WindowID, color uint32, left, top int32, width, height uint32) {
}
func (Unsupported) WindowSetBackgroundColor(win WindowID, color uint32) {}

func (Unsupported) SChannelIterate(ch SoundChannelID) (SoundChannelID, uint32) { return 0, 0 }
func (Unsupported) SChannelGetRock(ch SoundChannelID) uint32                   { return 0 }
func (Unsupported) SChannelCreate(rock uint32) SoundChannelID                  { return 0 }
func (Unsupported) SChannelCreateExt(rock, volume uint32) SoundChannelID       { return 0 }
func (Unsupported) SChannelDestroy(ch SoundChannelID)                          {}
func (Unsupported) SChannelPlay(ch SoundChannelID, snd uint32) bool            { return false }
func (Unsupported) SChannelPlayExt(ch SoundChannelID, snd, repeats, notify uint32) bool {
	return false
}
func (Unsupported) SChannelStop(ch SoundChannelID)                     {}
func (Unsupported) SChannelPause(ch SoundChannelID)                    {}
func (Unsupported) SChannelUnpause(ch SoundChannelID)                  {}
func (Unsupported) SChannelSetVolume(ch SoundChannelID, volume uint32) {}
func (Unsupported) SChannelSetVolumeExt(ch SoundChannelID, volume, duration, notify uint32) {
}
func (Unsupported) SoundLoadHint(snd uint32, flag bool) {}

func (Unsupported) CurrentTime() TimeVal                              { return TimeVal{} }
func (Unsupported) CurrentSimpleTime(factor uint32) int32             { return 0 }
func (Unsupported) TimeToDateUTC(t TimeVal) Date                      { return Date{} }
func (Unsupported) TimeToDateLocal(t TimeVal) Date                    { return Date{} }
func (Unsupported) SimpleTimeToDateUTC(t int32, factor uint32) Date   { return Date{} }
func (Unsupported) SimpleTimeToDateLocal(t int32, factor uint32) Date { return Date{} }
func (Unsupported) DateToTimeUTC(d Date) TimeVal                      { return TimeVal{} }
func (Unsupported) DateToTimeLocal(d Date) TimeVal                    { return TimeVal{} }
func (Unsupported) DateToSimpleTimeUTC(d Date, factor uint32) int32   { return 0 }
func (Unsupported) DateToSimpleTimeLocal(d Date, factor uint32) int32 { return 0 }
