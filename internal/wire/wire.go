// Package wire holds the text formats carried on keyspace channels.
//
// Detailed payload: origin ":" event [ ":" arg ]
// Score window arg:  start "-" stop "-" exclude
//
// origin never contains ':'; arg may (everything after the second ':' is the arg).
package wire

import (
	"errors"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("nearcache: malformed keyspace payload")

// Detailed is one decoded detailed keyspace event.
type Detailed struct {
	Origin string
	Event  string
	Arg    string
}

func EncodeDetailed(d Detailed) string {
	var b strings.Builder
	b.Grow(len(d.Origin) + 1 + len(d.Event) + 1 + len(d.Arg))
	b.WriteString(d.Origin)
	b.WriteByte(':')
	b.WriteString(d.Event)
	if d.Arg != "" {
		b.WriteByte(':')
		b.WriteString(d.Arg)
	}
	return b.String()
}

func DecodeDetailed(payload string) (Detailed, error) {
	origin, rest, ok := strings.Cut(payload, ":")
	if !ok || origin == "" || rest == "" {
		return Detailed{}, ErrMalformed
	}
	event, arg, _ := strings.Cut(rest, ":")
	if event == "" {
		return Detailed{}, ErrMalformed
	}
	return Detailed{Origin: origin, Event: event, Arg: arg}, nil
}

// ScoreWindow is the argument of a zremrangebyscore event.
type ScoreWindow struct {
	Start, Stop float64
	Exclude     uint8
}

func EncodeScoreWindow(w ScoreWindow) string {
	return strconv.FormatFloat(w.Start, 'g', -1, 64) + "-" +
		strconv.FormatFloat(w.Stop, 'g', -1, 64) + "-" +
		strconv.FormatUint(uint64(w.Exclude), 10)
}

// DecodeScoreWindow accepts negative scores and exponents ("-1.5--2e-3-0"): the exclude flag
// follows the last '-', and start/stop are split at the first '-' that leaves two valid floats.
func DecodeScoreWindow(arg string) (ScoreWindow, error) {
	i := strings.LastIndexByte(arg, '-')
	if i <= 0 || i == len(arg)-1 {
		return ScoreWindow{}, ErrMalformed
	}
	ex, err := strconv.ParseUint(arg[i+1:], 10, 8)
	if err != nil || ex > 3 {
		return ScoreWindow{}, ErrMalformed
	}
	scores := arg[:i]
	for j := 1; j < len(scores)-1; j++ {
		if scores[j] != '-' {
			continue
		}
		start, err1 := strconv.ParseFloat(scores[:j], 64)
		stop, err2 := strconv.ParseFloat(scores[j+1:], 64)
		if err1 == nil && err2 == nil {
			return ScoreWindow{Start: start, Stop: stop, Exclude: uint8(ex)}, nil
		}
	}
	return ScoreWindow{}, ErrMalformed
}

// DecodeHash parses the stable hash carried by srem/zadd/zrem/zincr/zdecr events.
// Signed decimals are accepted and reinterpreted, so publishers that print the hash
// as a signed 64-bit integer still match.
func DecodeHash(arg string) (uint64, error) {
	if u, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return u, nil
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return uint64(n), nil
}

func EncodeHash(h uint64) string { return strconv.FormatUint(h, 10) }
