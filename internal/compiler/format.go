package compiler

import (
	"math"
	"strconv"
	"strings"
)

// seconds renders a timestamp with millisecond precision.
func seconds(v float64) string {
	if math.Abs(v) < 0.0005 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// ratio renders a normalized coordinate with up to four decimals.
func ratio(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func number(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// even rounds to the nearest even integer, never below 2.
func even(v float64) int {
	n := int(math.Round(v/2)) * 2
	if n < 2 {
		return 2
	}
	return n
}

// filter renders name=arg1:arg2.
func filter(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + "=" + strings.Join(args, ":")
}

func kv(key, value string) string {
	return key + "=" + value
}

// enableWindow renders a quoted enable expression for [start, end]. Open windows
// only gate on the start.
func enableWindow(start, end float64, open bool) string {
	if open {
		return "enable='gte(t," + seconds(start) + ")'"
	}
	return "enable='between(t," + seconds(start) + "," + seconds(end) + ")'"
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
