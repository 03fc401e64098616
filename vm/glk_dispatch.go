package vm

import (
	"errors"
	"io"

	"github.com/chazu/glulx/glk"
)

// Capability selectors accepted by the glk opcode.
const (
	selExit                 = 0x001
	selSetInterruptHandler  = 0x002
	selTick                 = 0x003
	selGestalt              = 0x004
	selGestaltExt           = 0x005
	selWindowIterate        = 0x020
	selWindowGetRock        = 0x021
	selWindowGetRoot        = 0x022
	selWindowOpen           = 0x023
	selWindowClose          = 0x024
	selWindowGetSize        = 0x025
	selWindowSetArrangement = 0x026
	selWindowGetArrangement = 0x027
	selWindowGetType        = 0x028
	selWindowGetParent      = 0x029
	selWindowClear          = 0x02A
	selWindowMoveCursor     = 0x02B
	selWindowGetStream      = 0x02C
	selWindowSetEchoStream  = 0x02D
	selWindowGetEchoStream  = 0x02E
	selSetWindow            = 0x02F
	selWindowGetSibling     = 0x030
	selStreamIterate        = 0x040
	selStreamGetRock        = 0x041
	selStreamOpenFile       = 0x042
	selStreamOpenMemory     = 0x043
	selStreamClose          = 0x044
	selStreamSetPosition    = 0x045
	selStreamGetPosition    = 0x046
	selStreamSetCurrent     = 0x047
	selStreamGetCurrent     = 0x048
	selStreamOpenResource   = 0x049
	selFileRefCreateTemp    = 0x060
	selFileRefCreateByName  = 0x061
	selFileRefCreatePrompt  = 0x062
	selFileRefDestroy       = 0x063
	selFileRefIterate       = 0x064
	selFileRefGetRock       = 0x065
	selFileRefDeleteFile    = 0x066
	selFileRefDoesFileExist = 0x067
	selFileRefCreateFromRef = 0x068
	selPutChar              = 0x080
	selPutCharStream        = 0x081
	selPutString            = 0x082
	selPutStringStream      = 0x083
	selPutBuffer            = 0x084
	selPutBufferStream      = 0x085
	selSetStyle             = 0x086
	selSetStyleStream       = 0x087
	selGetCharStream        = 0x090
	selGetLineStream        = 0x091
	selGetBufferStream      = 0x092
	selCharToLower          = 0x0A0
	selCharToUpper          = 0x0A1
	selStylehintSet         = 0x0B0
	selStylehintClear       = 0x0B1
	selStyleDistinguish     = 0x0B2
	selStyleMeasure         = 0x0B3
	selSelect               = 0x0C0
	selSelectPoll           = 0x0C1
	selRequestLineEvent     = 0x0D0
	selCancelLineEvent      = 0x0D1
	selRequestCharEvent     = 0x0D2
	selCancelCharEvent      = 0x0D3
	selRequestMouseEvent    = 0x0D4
	selCancelMouseEvent     = 0x0D5
	selRequestTimerEvents   = 0x0D6
	selImageGetInfo         = 0x0E0
	selImageDraw            = 0x0E1
	selImageDrawScaled      = 0x0E2
	selWindowFlowBreak      = 0x0E8
	selWindowEraseRect      = 0x0E9
	selWindowFillRect       = 0x0EA
	selWindowSetBackground  = 0x0EB
	selSChannelIterate      = 0x0F0
	selSChannelGetRock      = 0x0F1
	selSChannelCreate       = 0x0F2
	selSChannelDestroy      = 0x0F3
	selSChannelCreateExt    = 0x0F4
	selSChannelPlay         = 0x0F8
	selSChannelPlayExt      = 0x0F9
	selSChannelStop         = 0x0FA
	selSChannelSetVolume    = 0x0FB
	selSoundLoadHint        = 0x0FC
	selSChannelSetVolumeExt = 0x0FD
	selSChannelPause        = 0x0FE
	selSChannelUnpause      = 0x0FF
	selSetHyperlink         = 0x100
	selSetHyperlinkStream   = 0x101
	selRequestHyperlink     = 0x102
	selCancelHyperlink      = 0x103
	selBufferToLowerUni     = 0x120
	selBufferToUpperUni     = 0x121
	selBufferToTitleUni     = 0x122
	selBufferDecomposeUni   = 0x123
	selBufferNormalizeUni   = 0x124
	selPutCharUni           = 0x128
	selPutStringUni         = 0x129
	selPutBufferUni         = 0x12A
	selPutCharStreamUni     = 0x12B
	selPutStringStreamUni   = 0x12C
	selPutBufferStreamUni   = 0x12D
	selGetCharStreamUni     = 0x130
	selGetBufferStreamUni   = 0x131
	selGetLineStreamUni     = 0x132
	selStreamOpenFileUni    = 0x138
	selStreamOpenMemoryUni  = 0x139
	selStreamOpenResUni     = 0x13A
	selRequestCharEventUni  = 0x140
	selRequestLineEventUni  = 0x141
	selSetEchoLineEvent     = 0x150
	selSetTerminators       = 0x151
	selCurrentTime          = 0x160
	selCurrentSimpleTime    = 0x161
	selTimeToDateUTC        = 0x168
	selTimeToDateLocal      = 0x169
	selSimpleToDateUTC      = 0x16A
	selSimpleToDateLocal    = 0x16B
	selDateToTimeUTC        = 0x16C
	selDateToTimeLocal      = 0x16D
	selDateToSimpleUTC      = 0x16E
	selDateToSimpleLocal    = 0x16F
)

// stackRef as a reference argument means the value travels on the stack.
const stackRef = 0xFFFFFFFF

// ---------------------------------------------------------------------------
// Reference arguments
// ---------------------------------------------------------------------------

// writeRef stores vals through a reference argument: nowhere for 0, pushed
// in order for stackRef, otherwise consecutive words in memory.
func (vm *VM) writeRef(ref uint32, vals ...uint32) {
	switch ref {
	case 0:
	case stackRef:
		for _, v := range vals {
			vm.push(v)
		}
	default:
		vm.writeWords(ref, vals)
	}
}

// readRef loads n words through a reference argument. Stack values are
// popped in the reverse of the order writeRef pushes them.
func (vm *VM) readRef(ref uint32, n uint32) []uint32 {
	switch ref {
	case 0:
		return make([]uint32, n)
	case stackRef:
		vm.need(n)
		vals := make([]uint32, n)
		for i := int(n) - 1; i >= 0; i-- {
			vals[i] = vm.pop()
		}
		return vals
	}
	return vm.readWords(ref, n)
}

func (vm *VM) writeEvent(ref uint32, ev glk.Event) {
	vm.writeRef(ref, uint32(ev.Type), uint32(ev.Win), ev.Val1, ev.Val2)
}

func (vm *VM) writeTimeVal(ref uint32, t glk.TimeVal) {
	vm.writeRef(ref, uint32(t.HighSec), t.LowSec, uint32(t.Microsec))
}

func (vm *VM) readTimeVal(ref uint32) glk.TimeVal {
	w := vm.readRef(ref, 3)
	return glk.TimeVal{HighSec: int32(w[0]), LowSec: w[1], Microsec: int32(w[2])}
}

func (vm *VM) writeDate(ref uint32, d glk.Date) {
	vm.writeRef(ref, uint32(d.Year), uint32(d.Month), uint32(d.Day), uint32(d.Weekday),
		uint32(d.Hour), uint32(d.Minute), uint32(d.Second), uint32(d.Microsec))
}

func (vm *VM) readDate(ref uint32) glk.Date {
	w := vm.readRef(ref, 8)
	return glk.Date{
		Year: int32(w[0]), Month: int32(w[1]), Day: int32(w[2]), Weekday: int32(w[3]),
		Hour: int32(w[4]), Minute: int32(w[5]), Second: int32(w[6]), Microsec: int32(w[7]),
	}
}

// glkString reads a Latin-1 string object (type 0xE0).
func (vm *VM) glkString(addr uint32) []byte {
	if t := vm.read8(addr); t != stringCString {
		vm.fatal(ErrStringDecode, "capability string at $%08X has type $%02X", addr, t)
	}
	return vm.readCString(addr + 1)
}

// glkUniString reads a Unicode string object (type 0xE2).
func (vm *VM) glkUniString(addr uint32) []uint32 {
	if t := vm.read8(addr); t != stringUnicode {
		vm.fatal(ErrStringDecode, "capability string at $%08X has type $%02X", addr, t)
	}
	return vm.readUniString(addr + 4)
}

// caseBuffer runs a Unicode buffer transform in place and copies the
// result back, returning the transformed length.
func (vm *VM) caseBuffer(addr, length uint32, fn func([]uint32) uint32) uint32 {
	buf := vm.readWords(addr, length)
	n := fn(buf)
	vm.writeWords(addr, buf[:min(n, length)])
	return n
}

// selectEvent finishes a Select or SelectPoll: line buffers are copied
// back before the event reaches the program.
func (vm *VM) selectEvent(ref uint32, ev glk.Event) {
	if ev.Type == glk.EvtLineInput {
		vm.completeLine(ev.Win)
	}
	vm.writeEvent(ref, ev)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// glkCall performs the capability operation sel with the arguments
// popped by the glk opcode and returns its result word.
func (vm *VM) glkCall(sel uint32, args []uint32) uint32 {
	a := func(i int) uint32 { return arg(args, i) }
	win := func(i int) glk.WindowID { return glk.WindowID(a(i)) }
	str := func(i int) glk.StreamID { return glk.StreamID(a(i)) }
	fref := func(i int) glk.FileRefID { return glk.FileRefID(a(i)) }
	sch := func(i int) glk.SoundChannelID { return glk.SoundChannelID(a(i)) }
	c := vm.glk

	switch sel {
	case selExit:
		c.Exit()
		vm.halt(nil)
	case selSetInterruptHandler:
	case selTick:
		c.Tick()
	case selGestalt:
		return c.Gestalt(a(0), a(1), nil)
	case selGestaltExt:
		if a(2) == 0 {
			return c.Gestalt(a(0), a(1), nil)
		}
		arr := vm.readWords(a(2), a(3))
		res := c.Gestalt(a(0), a(1), arr)
		vm.writeWords(a(2), arr)
		return res

	// Windows
	case selWindowIterate:
		next, rock := c.WindowIterate(win(0))
		vm.writeRef(a(1), rock)
		return uint32(next)
	case selWindowGetRock:
		return c.WindowGetRock(win(0))
	case selWindowGetRoot:
		return uint32(c.WindowGetRoot())
	case selWindowOpen:
		return uint32(c.WindowOpen(win(0), a(1), a(2), a(3), a(4)))
	case selWindowClose:
		vm.completeLine(win(0))
		res := c.WindowClose(win(0))
		vm.writeRef(a(1), res.ReadCount, res.WriteCount)
	case selWindowGetSize:
		w, h := c.WindowGetSize(win(0))
		vm.writeRef(a(1), w)
		vm.writeRef(a(2), h)
	case selWindowSetArrangement:
		c.WindowSetArrangement(win(0), a(1), a(2), win(3))
	case selWindowGetArrangement:
		method, size, key := c.WindowGetArrangement(win(0))
		vm.writeRef(a(1), method)
		vm.writeRef(a(2), size)
		vm.writeRef(a(3), uint32(key))
	case selWindowGetType:
		return c.WindowGetType(win(0))
	case selWindowGetParent:
		return uint32(c.WindowGetParent(win(0)))
	case selWindowGetSibling:
		return uint32(c.WindowGetSibling(win(0)))
	case selWindowClear:
		c.WindowClear(win(0))
	case selWindowMoveCursor:
		c.WindowMoveCursor(win(0), a(1), a(2))
	case selWindowGetStream:
		return uint32(c.WindowGetStream(win(0)))
	case selWindowSetEchoStream:
		c.WindowSetEchoStream(win(0), str(1))
	case selWindowGetEchoStream:
		return uint32(c.WindowGetEchoStream(win(0)))
	case selSetWindow:
		c.SetWindow(win(0))

	// Streams
	case selStreamIterate:
		next, rock := c.StreamIterate(str(0))
		vm.writeRef(a(1), rock)
		return uint32(next)
	case selStreamGetRock:
		return c.StreamGetRock(str(0))
	case selStreamOpenFile, selStreamOpenFileUni:
		return uint32(c.StreamOpenFile(fref(0), a(1), a(2), sel == selStreamOpenFileUni))
	case selStreamOpenMemory, selStreamOpenMemoryUni:
		buf := vm.retainBuffer(a(0), a(1), sel == selStreamOpenMemoryUni)
		id := c.StreamOpenMemory(buf, a(2), a(3))
		if buf.Handle != 0 {
			if id == 0 {
				vm.arena.release(buf.Handle)
			} else {
				vm.arena.streams[id] = buf.Handle
			}
		}
		return uint32(id)
	case selStreamOpenResource, selStreamOpenResUni:
		return uint32(c.StreamOpenResource(a(0), a(1), sel == selStreamOpenResUni))
	case selStreamClose:
		res := c.StreamClose(str(0))
		vm.closeMemoryStream(str(0))
		vm.writeRef(a(1), res.ReadCount, res.WriteCount)
	case selStreamSetPosition:
		c.StreamSetPosition(str(0), int32(a(1)), a(2))
	case selStreamGetPosition:
		return c.StreamGetPosition(str(0))
	case selStreamSetCurrent:
		c.StreamSetCurrent(str(0))
	case selStreamGetCurrent:
		return uint32(c.StreamGetCurrent())

	// File references
	case selFileRefCreateTemp:
		return uint32(c.FileRefCreateTemp(a(0), a(1)))
	case selFileRefCreateByName:
		return uint32(c.FileRefCreateByName(a(0), latin1String(vm.glkString(a(1))), a(2)))
	case selFileRefCreatePrompt:
		return uint32(c.FileRefCreateByPrompt(a(0), a(1), a(2)))
	case selFileRefCreateFromRef:
		return uint32(c.FileRefCreateFromFileRef(a(0), fref(1), a(2)))
	case selFileRefDestroy:
		c.FileRefDestroy(fref(0))
	case selFileRefIterate:
		next, rock := c.FileRefIterate(fref(0))
		vm.writeRef(a(1), rock)
		return uint32(next)
	case selFileRefGetRock:
		return c.FileRefGetRock(fref(0))
	case selFileRefDeleteFile:
		c.FileRefDeleteFile(fref(0))
	case selFileRefDoesFileExist:
		return b2u(c.FileRefDoesFileExist(fref(0)))

	// Output
	case selPutChar:
		c.PutChar(byte(a(0)))
	case selPutCharStream:
		c.PutCharStream(str(0), byte(a(1)))
	case selPutString:
		c.PutBuffer(vm.glkString(a(0)))
	case selPutStringStream:
		c.PutBufferStream(str(0), vm.glkString(a(1)))
	case selPutBuffer:
		c.PutBuffer(vm.readBytes(a(0), a(1)))
	case selPutBufferStream:
		c.PutBufferStream(str(0), vm.readBytes(a(1), a(2)))
	case selPutCharUni:
		c.PutCharUni(a(0))
	case selPutCharStreamUni:
		c.PutCharStreamUni(str(0), a(1))
	case selPutStringUni:
		c.PutBufferUni(vm.glkUniString(a(0)))
	case selPutStringStreamUni:
		c.PutBufferStreamUni(str(0), vm.glkUniString(a(1)))
	case selPutBufferUni:
		c.PutBufferUni(vm.readWords(a(0), a(1)))
	case selPutBufferStreamUni:
		c.PutBufferStreamUni(str(0), vm.readWords(a(1), a(2)))
	case selSetStyle:
		c.SetStyle(a(0))
	case selSetStyleStream:
		c.SetStyleStream(str(0), a(1))

	// Stream input
	case selGetCharStream:
		return uint32(c.GetCharStream(str(0)))
	case selGetCharStreamUni:
		return uint32(c.GetCharStreamUni(str(0)))
	case selGetLineStream, selGetBufferStream:
		vm.checkWrite(a(1), a(2))
		buf := make([]byte, a(2))
		var n uint32
		if sel == selGetLineStream {
			n = c.GetLineStream(str(0), buf)
			if n < a(2) {
				buf[n] = 0
				vm.writeBytes(a(1), buf[:n+1])
				return n
			}
		} else {
			n = c.GetBufferStream(str(0), buf)
		}
		vm.writeBytes(a(1), buf[:min(n, a(2))])
		return n
	case selGetLineStreamUni, selGetBufferStreamUni:
		vm.checkWrite(a(1), a(2)*4)
		buf := make([]uint32, a(2))
		var n uint32
		if sel == selGetLineStreamUni {
			n = c.GetLineStreamUni(str(0), buf)
			if n < a(2) {
				buf[n] = 0
				vm.writeWords(a(1), buf[:n+1])
				return n
			}
		} else {
			n = c.GetBufferStreamUni(str(0), buf)
		}
		vm.writeWords(a(1), buf[:min(n, a(2))])
		return n

	// Case and normalisation
	case selCharToLower:
		return c.CharToLower(a(0)) & 0xFF
	case selCharToUpper:
		return c.CharToUpper(a(0)) & 0xFF
	case selBufferToLowerUni:
		return vm.caseBuffer(a(0), a(1), func(b []uint32) uint32 { return c.BufferToLowerCaseUni(b, a(2)) })
	case selBufferToUpperUni:
		return vm.caseBuffer(a(0), a(1), func(b []uint32) uint32 { return c.BufferToUpperCaseUni(b, a(2)) })
	case selBufferToTitleUni:
		return vm.caseBuffer(a(0), a(1), func(b []uint32) uint32 { return c.BufferToTitleCaseUni(b, a(2), a(3) != 0) })
	case selBufferDecomposeUni:
		return vm.caseBuffer(a(0), a(1), func(b []uint32) uint32 { return c.BufferCanonDecomposeUni(b, a(2)) })
	case selBufferNormalizeUni:
		return vm.caseBuffer(a(0), a(1), func(b []uint32) uint32 { return c.BufferCanonNormalizeUni(b, a(2)) })

	// Styles
	case selStylehintSet:
		c.StylehintSet(a(0), a(1), a(2), int32(a(3)))
	case selStylehintClear:
		c.StylehintClear(a(0), a(1), a(2))
	case selStyleDistinguish:
		return b2u(c.StyleDistinguish(win(0), a(1), a(2)))
	case selStyleMeasure:
		v, ok := c.StyleMeasure(win(0), a(1), a(2))
		if ok {
			vm.writeRef(a(3), v)
		}
		return b2u(ok)

	// Events
	case selSelect:
		ev, err := c.Select()
		if err != nil {
			if errors.Is(err, io.EOF) {
				vm.log.Info("input ended")
				vm.halt(nil)
			} else {
				vm.halt(err)
			}
			return 0
		}
		vm.selectEvent(a(0), ev)
	case selSelectPoll:
		vm.selectEvent(a(0), c.SelectPoll())
	case selRequestLineEvent, selRequestLineEventUni:
		vm.completeLine(win(0))
		buf := vm.retainBuffer(a(1), a(2), sel == selRequestLineEventUni)
		if buf.Handle != 0 {
			vm.arena.lines[win(0)] = buf.Handle
		}
		if sel == selRequestLineEventUni {
			c.RequestLineEventUni(win(0), buf, a(3))
		} else {
			c.RequestLineEvent(win(0), buf, a(3))
		}
	case selCancelLineEvent:
		ev := c.CancelLineEvent(win(0))
		vm.completeLine(win(0))
		vm.writeEvent(a(1), ev)
	case selRequestCharEvent:
		c.RequestCharEvent(win(0))
	case selRequestCharEventUni:
		c.RequestCharEventUni(win(0))
	case selCancelCharEvent:
		c.CancelCharEvent(win(0))
	case selRequestMouseEvent:
		c.RequestMouseEvent(win(0))
	case selCancelMouseEvent:
		c.CancelMouseEvent(win(0))
	case selRequestTimerEvents:
		c.RequestTimerEvents(a(0))
	case selRequestHyperlink:
		c.RequestHyperlinkEvent(win(0))
	case selCancelHyperlink:
		c.CancelHyperlinkEvent(win(0))
	case selSetHyperlink:
		c.SetHyperlink(a(0))
	case selSetHyperlinkStream:
		c.SetHyperlinkStream(str(0), a(1))
	case selSetEchoLineEvent:
		c.SetEchoLineEvent(win(0), a(1) != 0)
	case selSetTerminators:
		var keys []uint32
		if a(1) != 0 {
			keys = vm.readWords(a(1), a(2))
		}
		c.SetTerminatorsLineEvent(win(0), keys)

	// Graphics
	case selImageGetInfo:
		w, h, ok := c.ImageGetInfo(a(0))
		if ok {
			vm.writeRef(a(1), w)
			vm.writeRef(a(2), h)
		}
		return b2u(ok)
	case selImageDraw:
		return b2u(c.ImageDraw(win(0), a(1), int32(a(2)), int32(a(3))))
	case selImageDrawScaled:
		return b2u(c.ImageDrawScaled(win(0), a(1), int32(a(2)), int32(a(3)), a(4), a(5)))
	case selWindowFlowBreak:
		c.WindowFlowBreak(win(0))
	case selWindowEraseRect:
		c.WindowEraseRect(win(0), int32(a(1)), int32(a(2)), a(3), a(4))
	case selWindowFillRect:
		c.WindowFillRect(win(0), a(1), int32(a(2)), int32(a(3)), a(4), a(5))
	case selWindowSetBackground:
		c.WindowSetBackgroundColor(win(0), a(1))

	// Sound
	case selSChannelIterate:
		next, rock := c.SChannelIterate(sch(0))
		vm.writeRef(a(1), rock)
		return uint32(next)
	case selSChannelGetRock:
		return c.SChannelGetRock(sch(0))
	case selSChannelCreate:
		return uint32(c.SChannelCreate(a(0)))
	case selSChannelCreateExt:
		return uint32(c.SChannelCreateExt(a(0), a(1)))
	case selSChannelDestroy:
		c.SChannelDestroy(sch(0))
	case selSChannelPlay:
		return b2u(c.SChannelPlay(sch(0), a(1)))
	case selSChannelPlayExt:
		return b2u(c.SChannelPlayExt(sch(0), a(1), a(2), a(3)))
	case selSChannelStop:
		c.SChannelStop(sch(0))
	case selSChannelPause:
		c.SChannelPause(sch(0))
	case selSChannelUnpause:
		c.SChannelUnpause(sch(0))
	case selSChannelSetVolume:
		c.SChannelSetVolume(sch(0), a(1))
	case selSChannelSetVolumeExt:
		c.SChannelSetVolumeExt(sch(0), a(1), a(2), a(3))
	case selSoundLoadHint:
		c.SoundLoadHint(a(0), a(1) != 0)

	// Date and time
	case selCurrentTime:
		vm.writeTimeVal(a(0), c.CurrentTime())
	case selCurrentSimpleTime:
		return uint32(c.CurrentSimpleTime(a(0)))
	case selTimeToDateUTC:
		vm.writeDate(a(1), c.TimeToDateUTC(vm.readTimeVal(a(0))))
	case selTimeToDateLocal:
		vm.writeDate(a(1), c.TimeToDateLocal(vm.readTimeVal(a(0))))
	case selSimpleToDateUTC:
		vm.writeDate(a(2), c.SimpleTimeToDateUTC(int32(a(0)), a(1)))
	case selSimpleToDateLocal:
		vm.writeDate(a(2), c.SimpleTimeToDateLocal(int32(a(0)), a(1)))
	case selDateToTimeUTC:
		vm.writeTimeVal(a(1), c.DateToTimeUTC(vm.readDate(a(0))))
	case selDateToTimeLocal:
		vm.writeTimeVal(a(1), c.DateToTimeLocal(vm.readDate(a(0))))
	case selDateToSimpleUTC:
		return uint32(c.DateToSimpleTimeUTC(vm.readDate(a(0)), a(1)))
	case selDateToSimpleLocal:
		return uint32(c.DateToSimpleTimeLocal(vm.readDate(a(0)), a(1)))

	default:
		if !vm.glkWarned[sel] {
			vm.glkWarned[sel] = true
			vm.log.Warningf("unsupported capability selector $%03X", sel)
		}
	}
	return 0
}

// latin1String widens Latin-1 bytes to a Go string.
func latin1String(b []byte) string {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
