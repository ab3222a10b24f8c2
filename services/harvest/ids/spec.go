package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// Space tags which identifier space the values of a Spec live in.
type Space int

const (
	// SpaceAuto infers the space from magnitude, see Spec.AutoThreshold.
	SpaceAuto Space = iota
	SpaceURL
	SpaceReal
)

func (s Space) String() string {
	switch s {
	case SpaceURL:
		return "url"
	case SpaceReal:
		return "real"
	}
	return "auto"
}

func ParseSpace(raw string) (Space, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "url":
		return SpaceURL, nil
	case "real":
		return SpaceReal, nil
	case "auto", "":
		return SpaceAuto, nil
	}
	return 0, fmt.Errorf("unknown id space: %q (want url, real or auto)", raw)
}

// DefaultAutoThreshold sits between typical url-id magnitudes (tens of
// thousands) and real-id magnitudes (about a million for candidates).
// It is a heuristic boundary, callers needing determinism should pass an
// explicit space instead of relying on it.
const DefaultAutoThreshold int64 = 500000

var ErrMalformedRange = fmt.Errorf("malformed id range")

// Spec is a parsed user-facing id specification: a single id, an
// inclusive HIGH-LOW range processed in descending order, or a comma
// list processed as given. The string format ("N", "HIGH-LOW",
// "a,b,c") is the stable batch entry point and must not change.
type Spec struct {
	Space Space
	// AutoThreshold is the magnitude cutoff used when Space is
	// SpaceAuto: values at or below it classify as url-space, larger
	// values as real-space. Zero means DefaultAutoThreshold.
	AutoThreshold int64

	ranged    bool
	high, low int64
	list      []int64
}

// ParseSpec parses a raw id specification string. List duplicates are
// kept: every occurrence is processed, deduplication is left to future
// skip logic.
func ParseSpec(raw string, space Space) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}, fmt.Errorf("empty id specification")
	}

	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		list := make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := parseID(p)
			if err != nil {
				return Spec{}, err
			}
			list = append(list, id)
		}
		return Spec{Space: space, list: list}, nil
	}

	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		high, err := parseID(parts[0])
		if err != nil {
			return Spec{}, err
		}
		low, err := parseID(parts[1])
		if err != nil {
			return Spec{}, err
		}
		if high < low {
			return Spec{}, fmt.Errorf(
				"%w: %d-%d (want HIGH-LOW with HIGH >= LOW)",
				ErrMalformedRange, high, low,
			)
		}
		return Spec{Space: space, ranged: true, high: high, low: low}, nil
	}

	id, err := parseID(raw)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Space: space, list: []int64{id}}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an id", ErrInvalidID, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d is not a positive id", ErrInvalidID, id)
	}
	return id, nil
}

// Count is the number of items the spec will expand to.
func (s Spec) Count() int {
	if s.ranged {
		return int(s.high - s.low + 1)
	}
	return len(s.list)
}

func (s Spec) maxValue() int64 {
	if s.ranged {
		return s.high
	}
	var max int64
	for _, id := range s.list {
		if id > max {
			max = id
		}
	}
	return max
}

func (s Spec) effectiveSpace() Space {
	if s.Space != SpaceAuto {
		return s.Space
	}
	threshold := s.AutoThreshold
	if threshold == 0 {
		threshold = DefaultAutoThreshold
	}
	// the whole spec classifies together, keyed on its largest value, so
	// that a range never straddles both spaces
	if s.maxValue() > threshold {
		return SpaceReal
	}
	return SpaceURL
}

// Expand resolves the spec into the concrete, order-preserving sequence
// of url-space ids to process: descending for ranges, as-given for
// lists. Real-space values are converted through ToURL, which makes
// invalid real ids fail here, before any batch work begins.
func (s Spec) Expand(kind Kind) ([]int64, error) {
	space := s.effectiveSpace()

	convert := func(id int64) (int64, error) {
		if space == SpaceReal {
			return ToURL(id, kind)
		}
		return id, nil
	}

	if s.ranged {
		out := make([]int64, 0, s.high-s.low+1)
		for id := s.high; id >= s.low; id-- {
			urlID, err := convert(id)
			if err != nil {
				return nil, err
			}
			out = append(out, urlID)
		}
		return out, nil
	}

	out := make([]int64, 0, len(s.list))
	for _, id := range s.list {
		urlID, err := convert(id)
		if err != nil {
			return nil, err
		}
		out = append(out, urlID)
	}
	return out, nil
}
