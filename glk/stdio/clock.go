package stdio

import (
	"time"

	"github.com/chazu/glulx/glk"
)

// ---------------------------------------------------------------------------
// Date and time
//
// A TimeVal splits Unix seconds into a signed high word and an unsigned low
// word. Simple times are Unix seconds divided by a factor, rounded down.
// ---------------------------------------------------------------------------

func toTimeVal(tm time.Time) glk.TimeVal {
	sec := tm.Unix()
	return glk.TimeVal{HighSec: int32(sec >> 32), LowSec: uint32(sec), Microsec: int32(tm.Nanosecond() / 1000)}
}

func fromTimeVal(tv glk.TimeVal) time.Time {
	return time.Unix(int64(tv.HighSec)<<32|int64(tv.LowSec), int64(tv.Microsec)*1000)
}

func toDate(tm time.Time) glk.Date {
	return glk.Date{
		Year:     int32(tm.Year()),
		Month:    int32(tm.Month()),
		Day:      int32(tm.Day()),
		Weekday:  int32(tm.Weekday()),
		Hour:     int32(tm.Hour()),
		Minute:   int32(tm.Minute()),
		Second:   int32(tm.Second()),
		Microsec: int32(tm.Nanosecond() / 1000),
	}
}

// fromDate normalises out-of-range fields the way time.Date does.
func fromDate(d glk.Date, loc *time.Location) time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), int(d.Microsec)*1000, loc)
}

func simpleTime(tm time.Time, factor uint32) int32 {
	if factor == 0 {
		return 0
	}
	sec, f := tm.Unix(), int64(factor)
	q := sec / f
	if sec%f != 0 && sec < 0 {
		q--
	}
	return int32(q)
}

func fromSimpleTime(t int32, factor uint32) time.Time {
	return time.Unix(int64(t)*int64(factor), 0)
}

func (t *Terminal) CurrentTime() glk.TimeVal { return toTimeVal(t.now()) }

func (t *Terminal) CurrentSimpleTime(factor uint32) int32 { return simpleTime(t.now(), factor) }

func (t *Terminal) TimeToDateUTC(tv glk.TimeVal) glk.Date { return toDate(fromTimeVal(tv).UTC()) }

func (t *Terminal) TimeToDateLocal(tv glk.TimeVal) glk.Date {
	return toDate(fromTimeVal(tv).In(t.loc))
}

func (t *Terminal) SimpleTimeToDateUTC(st int32, factor uint32) glk.Date {
	return toDate(fromSimpleTime(st, factor).UTC())
}

func (t *Terminal) SimpleTimeToDateLocal(st int32, factor uint32) glk.Date {
	return toDate(fromSimpleTime(st, factor).In(t.loc))
}

func (t *Terminal) DateToTimeUTC(d glk.Date) glk.TimeVal { return toTimeVal(fromDate(d, time.UTC)) }

func (t *Terminal) DateToTimeLocal(d glk.Date) glk.TimeVal { return toTimeVal(fromDate(d, t.loc)) }

func (t *Terminal) DateToSimpleTimeUTC(d glk.Date, factor uint32) int32 {
	return simpleTime(fromDate(d, time.UTC), factor)
}

func (t *Terminal) DateToSimpleTimeLocal(d glk.Date, factor uint32) int32 {
	return simpleTime(fromDate(d, t.loc), factor)
}
