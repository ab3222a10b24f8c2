// Package ids converts between the two parallel identifier spaces the
// ERP system uses: the "url id" visible in detail-page navigation and
// the "real id" stored in its database. The two are related by a fixed
// per-entity-kind offset.
package ids

import (
	"fmt"
)

type Kind int

const (
	Candidate Kind = iota
	Case
)

func (k Kind) String() string {
	switch k {
	case Candidate:
		return "candidate"
	case Case:
		return "case"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(data []byte) error {
	parsed, err := ParseKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseKind(raw string) (Kind, error) {
	switch raw {
	case "candidate":
		return Candidate, nil
	case "case":
		return Case, nil
	}
	return 0, fmt.Errorf("unknown entity kind: %q", raw)
}

// Offsets between the url and real id spaces. These were derived
// empirically from sampled records (3 candidate samples, 7 case samples)
// and are treated as configuration constants, not proven invariants: a
// record that disagrees with the mapping is a data-quality warning, not
// a reason to trust the derived value over an extracted one.
const (
	CandidateOffset int64 = 979174
	CaseOffset      int64 = 10000
)

func Offset(kind Kind) int64 {
	if kind == Candidate {
		return CandidateOffset
	}
	return CaseOffset
}

var ErrInvalidID = fmt.Errorf("invalid id")

// ToReal maps a url id to its real id. Total over the integer domain.
func ToReal(urlID int64, kind Kind) int64 {
	return urlID + Offset(kind)
}

// ToURL maps a real id back to its url id. Real ids at or below the
// offset would produce a non-positive url id and are rejected.
func ToURL(realID int64, kind Kind) (int64, error) {
	urlID := realID - Offset(kind)
	if urlID <= 0 {
		return 0, fmt.Errorf(
			"%w: real id %d maps to non-positive url id %d for kind %s",
			ErrInvalidID, realID, urlID, kind,
		)
	}
	return urlID, nil
}
