package labels

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Base36Chars is the alphabet of random code suffixes.
const Base36Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	plantCodeLen    = 3
	batchSuffixLen  = 4
	sequenceLen     = 3
	randomSuffixLen = 6
	defaultBatchTag = "BATCH"

	// MaxSequenceWidth caps the digits a {seq:N} placeholder may request.
	MaxSequenceWidth = 32
)

var (
	seqPaddedPattern = regexp.MustCompile(`\{seq:(\d+)\}`)

	// ErrBatchIDExhausted is returned when no unused batch id was found.
	ErrBatchIDExhausted = errors.New("could not allocate a unique batch id")

	ErrSequenceFormat = errors.New("invalid sequence format")
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// RandomSource supplies random integers in [0, n). *rand.Rand from
// math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// GlobalRandom is safe for concurrent use.
var GlobalRandom RandomSource = globalRand{}

// Coder builds traceability codes and batch ids.
type Coder struct {
	clock Clock
	rand  RandomSource
}

// NewCoder returns a Coder. Nil arguments fall back to the system clock
// and the global random source.
func NewCoder(clock Clock, rnd RandomSource) *Coder {
	if clock == nil {
		clock = SystemClock
	}
	if rnd == nil {
		rnd = GlobalRandom
	}
	return &Coder{clock: clock, rand: rnd}
}

// Now returns the coder's current time in UTC.
func (c *Coder) Now() time.Time {
	return c.clock.Now().UTC()
}

// TraceabilityCode returns "{PLANT3}-{YYYYMMDD}-{BATCH4}-{SEQ3}" dated by
// the coder's clock.
func (c *Coder) TraceabilityCode(plantID, batchID string, sequence int) string {
	return TraceabilityCodeAt(plantID, batchID, sequence, c.Now())
}

// TraceabilityCodeAt is TraceabilityCode for a fixed date. The result is
// reproducible for a fixed plant, batch, sequence and date.
func TraceabilityCodeAt(plantID, batchID string, sequence int, at time.Time) string {
	if batchID == "" {
		batchID = defaultBatchTag
	}
	if sequence <= 0 {
		sequence = 1
	}
	seq := lastN(padLeft(strconv.Itoa(sequence), sequenceLen, "0"), sequenceLen)
	batch := strings.ToUpper(lastN(batchID, batchSuffixLen))

	return PlantPrefix(plantID) + "-" + DateCode(at) + "-" + batch + "-" + seq
}

// BatchID returns "{PLANT3}_{YYYYMMDD}_{RAND6}". It is intentionally not
// reproducible.
func (c *Coder) BatchID(plantID string) string {
	var sb strings.Builder
	sb.WriteString(PlantPrefix(plantID))
	sb.WriteByte('_')
	sb.WriteString(DateCode(c.Now()))
	sb.WriteByte('_')
	for i := 0; i < randomSuffixLen; i++ {
		sb.WriteByte(Base36Chars[c.rand.IntN(len(Base36Chars))])
	}
	return sb.String()
}

// UniqueBatchID draws batch ids until exists reports an unused one.
func (c *Coder) UniqueBatchID(plantID string, attempts int, exists func(string) (bool, error)) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		id := c.BatchID(plantID)
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrBatchIDExhausted
}

// PlantPrefix is the first three alphanumerics of the plant id, upper-cased
// and padded with X so the prefix is always three characters.
func PlantPrefix(plantID string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(plantID) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			if sb.Len() == plantCodeLen {
				break
			}
		}
	}
	return padRight(sb.String(), plantCodeLen, "X")
}

// DateCode formats t as YYYYMMDD in UTC.
func DateCode(t time.Time) string {
	return t.UTC().Format("20060102")
}

// CheckSequenceFormat rejects {seq:N} placeholders wider than
// MaxSequenceWidth.
func CheckSequenceFormat(format string) error {
	for _, m := range seqPaddedPattern.FindAllStringSubmatch(format, -1) {
		if w, err := strconv.Atoi(m[1]); err != nil || w > MaxSequenceWidth {
			return fmt.Errorf("%w: %s exceeds %d digits", ErrSequenceFormat, m[0], MaxSequenceWidth)
		}
	}
	return nil
}

// FormatSequence renders n through a format such as "BATCH-{seq:4}".
// {seq:N} zero-pads to N digits, bare {seq} is unpadded. An empty format
// yields the plain number. Widths past MaxSequenceWidth are clamped.
func FormatSequence(n int, format string) string {
	plain := strconv.Itoa(n)
	if format == "" {
		return plain
	}
	out := seqPaddedPattern.ReplaceAllStringFunc(format, func(m string) string {
		width, err := strconv.Atoi(seqPaddedPattern.FindStringSubmatch(m)[1])
		if err != nil || width > MaxSequenceWidth {
			width = MaxSequenceWidth
		}
		return padLeft(plain, width, "0")
	})
	return strings.ReplaceAll(out, "{seq}", plain)
}

func lastN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func padLeft(s string, l int, pad string) string {
	if len(s) >= l {
		return s
	}
	return strings.Repeat(pad, l-len(s)) + s
}

func padRight(s string, l int, pad string) string {
	if len(s) >= l {
		return s[:l]
	}
	return s + strings.Repeat(pad, l-len(s))
}
