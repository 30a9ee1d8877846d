// internal/cw/parser.go
package cw

import "strings"

// PulseRecord is one key-down report from the hardware: the silence that
// preceded the key-down and the duration the key was held. Records are
// immutable once parsed and consumed exactly once by the classifier.
type PulseRecord struct {
	PauseMs  int
	LengthMs int
}

// Record grammar limits
const (
	// markerCommaWindow is how far from the S marker the first comma may be
	// before the marker is dismissed as coincidental
	markerCommaWindow = 20
	// maxDurationMs caps parsed durations so absurd digit runs cannot
	// overflow; anything past a day is garbage anyway
	maxDurationMs = 86_400_000
)

// ParseLine scans a raw serial line for embedded pulse records of the form
// S,<pause>,<length> and returns them in encounter order. The scan tolerates
// arbitrary surrounding noise: a marker whose record is malformed is skipped
// and scanning resumes one character past it, so a corrupted or coincidental
// letter never desynchronizes the rest of the line. After a successful
// record the scan resumes exactly at the end of the consumed length digits.
func ParseLine(line string) []PulseRecord {
	var records []PulseRecord

	i := 0
	for i < len(line) {
		if line[i] != 'S' && line[i] != 's' {
			i++
			continue
		}

		comma := strings.IndexByte(line[i:], ',')
		if comma < 0 {
			// No comma left anywhere: no record can follow
			break
		}
		if comma > markerCommaWindow {
			// Too far away, this letter is not a record prefix
			i++
			continue
		}

		rec, end, ok := parseRecord(line, i+comma)
		if !ok {
			i++
			continue
		}
		records = append(records, rec)
		i = end
	}

	return records
}

// parseRecord parses ",<pause>,<length>" starting at the first comma.
// It returns the record and the index just past the length digits.
// A missing field or a zero length rejects the record.
func parseRecord(line string, firstComma int) (PulseRecord, int, bool) {
	pause, i, ok := scanDigits(line, firstComma+1)
	if !ok {
		return PulseRecord{}, 0, false
	}
	if i >= len(line) || line[i] != ',' {
		return PulseRecord{}, 0, false
	}
	length, end, ok := scanDigits(line, i+1)
	if !ok || length == 0 {
		return PulseRecord{}, 0, false
	}
	return PulseRecord{PauseMs: pause, LengthMs: length}, end, true
}

// scanDigits consumes a run of ASCII digits starting at i, returning the
// value, the index past the run, and whether at least one digit was seen.
// Values are clamped at maxDurationMs.
func scanDigits(line string, i int) (int, int, bool) {
	val := 0
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		val = val*10 + int(line[i]-'0')
		if val > maxDurationMs {
			val = maxDurationMs
		}
		i++
	}
	return val, i, i > start
}
