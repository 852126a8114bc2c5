// Package identifier generates and validates incident identifiers of the form
// YYYYMM_NN with an optional .RR revision suffix.
package identifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	maxSequence = 99
	maxRevision = 99
)

var (
	yearMonthPattern = regexp.MustCompile(`^\d{4}(0[1-9]|1[0-2])$`)
	basePattern      = regexp.MustCompile(`^(\d{4}(?:0[1-9]|1[0-2]))_(\d{2})$`)
	revisionPattern  = regexp.MustCompile(`^(\d{4}(?:0[1-9]|1[0-2]))_(\d{2})\.(\d{2})$`)
	twoDigits        = regexp.MustCompile(`^\d{2}$`)
)

// ID is a parsed identifier.
type ID struct {
	YearMonth   string
	Sequence    int
	Revision    int
	HasRevision bool
}

// Base returns the identifier without its revision suffix.
func (id ID) Base() string {
	return fmt.Sprintf("%s_%s", id.YearMonth, pad2(id.Sequence))
}

// String returns the identifier in canonical form.
func (id ID) String() string {
	if !id.HasRevision {
		return id.Base()
	}
	return fmt.Sprintf("%s.%s", id.Base(), pad2(id.Revision))
}

// RevisionSuffix returns the two-digit revision, empty when absent.
func (id ID) RevisionSuffix() string {
	if !id.HasRevision {
		return ""
	}
	return pad2(id.Revision)
}

// Parse parses a base or revision identifier.
func Parse(s string) (ID, error) {
	if m := revisionPattern.FindStringSubmatch(s); m != nil {
		seq, _ := strconv.Atoi(m[2])
		rev, _ := strconv.Atoi(m[3])
		return ID{YearMonth: m[1], Sequence: seq, Revision: rev, HasRevision: true}, nil
	}
	if m := basePattern.FindStringSubmatch(s); m != nil {
		seq, _ := strconv.Atoi(m[2])
		return ID{YearMonth: m[1], Sequence: seq}, nil
	}
	return ID{}, formatError(s, "expected YYYYMM_NN or YYYYMM_NN.RR")
}

// Validate reports whether s is a base identifier, a revision identifier or
// empty. Empty means "not yet set" and is accepted.
func Validate(s string) bool {
	if s == "" {
		return true
	}
	return basePattern.MatchString(s) || revisionPattern.MatchString(s)
}

// Base strips the revision suffix from a well-formed identifier.
func Base(s string) (string, error) {
	id, err := Parse(s)
	if err != nil {
		return "", err
	}
	return id.Base(), nil
}

// YearMonth formats t as YYYYMM in UTC.
func YearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

// GenerateBaseID returns the next base identifier for yearMonth. The number
// is one above the highest sequence seen for that month, so numbers are never
// reused even when there are gaps. Identifiers of other months and malformed
// entries are ignored.
func GenerateBaseID(existing []string, yearMonth string) (string, error) {
	if !yearMonthPattern.MatchString(yearMonth) {
		return "", formatError(yearMonth, "year-month must be YYYYMM")
	}

	highest := 0
	prefix := yearMonth + "_"
	for _, s := range existing {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		id, err := Parse(s)
		if err != nil {
			continue
		}
		if id.Sequence > highest {
			highest = id.Sequence
		}
	}

	next := highest + 1
	if next > maxSequence {
		return "", formatError(yearMonth, fmt.Sprintf("sequence exhausted after %d", maxSequence))
	}
	return prefix + pad2(next), nil
}

// IncrementRevision returns id with its revision advanced by one. A .RR
// suffix on id is the current revision; otherwise storedRevision is, with an
// empty value meaning 00.
func IncrementRevision(id, storedRevision string) (string, error) {
	parsed, err := Parse(id)
	if err != nil {
		return "", err
	}

	current := parsed.Revision
	if !parsed.HasRevision {
		current, err = parseRevision(storedRevision)
		if err != nil {
			return "", err
		}
	}

	if current >= maxRevision {
		return "", formatError(id, fmt.Sprintf("revision cannot exceed %d", maxRevision))
	}

	return fmt.Sprintf("%s.%s", parsed.Base(), pad2(current+1)), nil
}

// CheckRevision verifies that a record's stored revision agrees with the
// suffix of its identifier. Identifiers without a suffix accept any revision.
func CheckRevision(id, revision string) error {
	if id == "" {
		return nil
	}
	parsed, err := Parse(id)
	if err != nil {
		return err
	}
	if !parsed.HasRevision {
		return nil
	}
	if revision != parsed.RevisionSuffix() {
		return formatError(id, fmt.Sprintf("revision %q does not match suffix %q", revision, parsed.RevisionSuffix()))
	}
	return nil
}

func parseRevision(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if !twoDigits.MatchString(s) {
		return 0, formatError(s, "revision must be two digits")
	}
	n, _ := strconv.Atoi(s)
	return n, nil
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}
