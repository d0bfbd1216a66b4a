package ttml

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

// TimeKind identifies which TTML time-expression syntax an attribute uses.
type TimeKind int

const (
	// KindUnknown is any syntax the parser does not support (media-time,
	// wall-clock, typos).
	KindUnknown TimeKind = iota

	// KindClock is clock-time: hours:minutes:seconds with an optional
	// decimal fraction or frame count.
	KindClock

	// KindOffset is offset-time: a number followed by a metric
	// (h, m, s, ms, f, t).
	KindOffset
)

func (k TimeKind) String() string {
	switch k {
	case KindClock:
		return "clock-time"
	case KindOffset:
		return "offset-time"
	default:
		return "unknown"
	}
}

var (
	// 00:00:01, 00:00:01.500, 00:00:01:12, 00:00:01:12.1
	clockTimeRe = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})(?:\.(\d+)|:(\d+)(?:\.(\d+))?)?$`)

	// 1.5s, 1500ms, 2h, 36f, 900t
	offsetTimeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)(h|ms|m|s|f|t)$`)
)

// canonicalTime strips the ISO-8601 markers T and Z and reads a lone comma
// as the decimal separator, so "T00:00:01,000Z" becomes "00:00:01.000".
func canonicalTime(expr string) string {
	expr = legacyTimeReplacer.Replace(strings.TrimSpace(expr))
	if strings.Count(expr, ",") == 1 && !strings.Contains(expr, ".") {
		expr = strings.Replace(expr, ",", ".", 1)
	}
	return expr
}

// ClassifyTime reports which syntax expr uses, after T/Z markers are
// stripped and a comma separator is read as ".".
func ClassifyTime(expr string) TimeKind {
	expr = canonicalTime(expr)
	switch {
	case clockTimeRe.MatchString(expr):
		return KindClock
	case offsetTimeRe.MatchString(expr):
		return KindOffset
	default:
		return KindUnknown
	}
}

// TimeBase holds the timing parameters that frame- and tick-based
// expressions depend on. It is read once per document from the root
// element's ttp: attributes.
type TimeBase struct {
	// FrameRate is the effective frame rate (ttp:frameRate multiplied by
	// ttp:frameRateMultiplier).
	FrameRate float64

	// SubFrameRate is ttp:subFrameRate.
	SubFrameRate float64

	// TickRate is ttp:tickRate.
	TickRate float64
}

// DefaultTimeBase returns the TTML defaults: 30 fps, one sub-frame per
// frame, one tick per second.
func DefaultTimeBase() TimeBase {
	return TimeBase{FrameRate: 30, SubFrameRate: 1, TickRate: 1}
}

// timeBaseOf reads ttp:frameRate, ttp:frameRateMultiplier, ttp:subFrameRate
// and ttp:tickRate from the document element. Missing or malformed values
// fall back to the defaults.
func timeBaseOf(doc *xmlquery.Node) TimeBase {
	tb := DefaultTimeBase()
	root := documentElement(doc)
	if root == nil {
		return tb
	}

	frameRateSet := false
	if v, ok := attr(root, "frameRate"); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && n > 0 {
			tb.FrameRate = n
			frameRateSet = true
		}
	}
	if v, ok := attr(root, "frameRateMultiplier"); ok {
		// "numerator denominator", e.g. "1000 1001" for 29.97 fps.
		parts := strings.Fields(v)
		if len(parts) == 2 {
			num, err1 := strconv.ParseFloat(parts[0], 64)
			den, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 == nil && err2 == nil && num > 0 && den > 0 {
				tb.FrameRate = tb.FrameRate * num / den
			}
		}
	}
	if v, ok := attr(root, "subFrameRate"); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && n > 0 {
			tb.SubFrameRate = n
		}
	}

	// Without an explicit tickRate, TTML derives it from the frame rate
	// when one is given, otherwise it is 1.
	if frameRateSet {
		tb.TickRate = tb.FrameRate * tb.SubFrameRate
	}
	if v, ok := attr(root, "tickRate"); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && n > 0 {
			tb.TickRate = n
		}
	}
	return tb
}

// ParseTime converts a TTML time expression into a duration from the start
// of the document. It returns an error wrapping ErrBadTime for syntaxes
// other than clock-time and offset-time.
func ParseTime(expr string, tb TimeBase) (time.Duration, error) {
	expr = canonicalTime(expr)
	switch ClassifyTime(expr) {
	case KindClock:
		return parseClockTime(expr, tb)
	case KindOffset:
		return parseOffsetTime(expr, tb)
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadTime, expr)
	}
}

func parseClockTime(expr string, tb TimeBase) (time.Duration, error) {
	m := clockTimeRe.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, expr)
	}

	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)
	if minutes > 59 || seconds > 60 {
		return 0, fmt.Errorf("%w: %q: minutes or seconds out of range", ErrBadTime, expr)
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second

	switch {
	case m[4] != "":
		// Decimal fraction of a second: ".5" is half a second.
		d += fraction(m[4])
	case m[5] != "":
		frames, _ := strconv.ParseFloat(m[5], 64)
		secs := frames / tb.FrameRate
		if m[6] != "" {
			sub, _ := strconv.ParseFloat(m[6], 64)
			secs += sub / (tb.FrameRate * tb.SubFrameRate)
		}
		d += secondsToDuration(secs)
	}
	return d, nil
}

func parseOffsetTime(expr string, tb TimeBase) (time.Duration, error) {
	m := offsetTimeRe.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, expr)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadTime, expr, err)
	}

	switch m[2] {
	case "h":
		return secondsToDuration(value * 3600), nil
	case "m":
		return secondsToDuration(value * 60), nil
	case "s":
		return secondsToDuration(value), nil
	case "ms":
		return secondsToDuration(value / 1000), nil
	case "f":
		return secondsToDuration(value / tb.FrameRate), nil
	default: // "t"
		return secondsToDuration(value / tb.TickRate), nil
	}
}

// fraction turns the digits after a decimal point into a duration,
// keeping nanosecond precision and ignoring anything finer.
func fraction(digits string) time.Duration {
	if len(digits) > 9 {
		digits = digits[:9]
	}
	digits += strings.Repeat("0", 9-len(digits))
	ns, _ := strconv.ParseInt(digits, 10, 64)
	return time.Duration(ns)
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * float64(time.Second)))
}

// legacyTimeReplacer strips the ISO-8601 markers T and Z.
var legacyTimeReplacer = strings.NewReplacer("T", "", "Z", "")

// NormalizeTimestamp applies the textual TTML→SRT rewrite used for time
// strings the parser cannot interpret: the first "." becomes ",", then
// every "T" and "Z" is removed. It assumes an HH:MM:SS.mmm-like layout.
func NormalizeTimestamp(s string) string {
	s = strings.Replace(strings.TrimSpace(s), ".", ",", 1)
	return legacyTimeReplacer.Replace(s)
}
