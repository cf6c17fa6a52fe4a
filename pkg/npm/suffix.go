package npm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/packsmith/packsmith/pkg/errors"
)

// baseRe matches the leading major.minor.patch core of a version string.
var baseRe = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// SuffixGenerator computes build-qualified version strings of the form
// base-label-NNNNN from a pool of already-used versions. It is a pure
// computation: same inputs always produce the same output, and nothing is
// mutated.
type SuffixGenerator struct {
	// Suffix is the qualifier label appended to the version base
	// (e.g. "jboss" producing 1.0.0-jboss-00001).
	Suffix string

	// SuffixPadding is the zero-pad width of the incremental number.
	// The generated number must fit the width; overflow is an error.
	// A width of 0 disables padding and the overflow check.
	SuffixPadding int

	// SuffixOverride replaces the generated qualifier. When it ends in
	// digits it is taken verbatim as the full suffix (base-SuffixOverride);
	// otherwise it only replaces the label and the increment is still
	// computed from the available pool.
	SuffixOverride string

	// VersionOverride, when set, is returned verbatim by NewVersion and
	// every other input is ignored. Highest-priority rule.
	VersionOverride string
}

// NewVersion computes the next unused build-qualified version for current,
// given the pool of versions already published. Entries in available that do
// not match the base-label-digits pattern are skipped, never errors.
//
// Any qualifier already carried by current is discarded: the scan over the
// available pool is authoritative, not the input's own suffix.
func (g *SuffixGenerator) NewVersion(current string, available []string) (string, error) {
	if g.VersionOverride != "" {
		return g.VersionOverride, nil
	}

	base := versionBase(current)

	label := g.Suffix
	if g.SuffixOverride != "" {
		if endsInDigits(g.SuffixOverride) {
			// Full qualifier override, taken verbatim.
			return base + "-" + g.SuffixOverride, nil
		}
		label = g.SuffixOverride
	}

	next := g.HighestIncrement(base+"-"+label, available) + 1
	if g.SuffixPadding > 0 && len(strconv.Itoa(next)) > g.SuffixPadding {
		return "", errors.New(errors.ErrCodeSuffixOverflow,
			"suffix number %d does not fit %d digits for %s-%s", next, g.SuffixPadding, base, label)
	}

	if g.SuffixPadding > 0 {
		return fmt.Sprintf("%s-%s-%0*d", base, label, g.SuffixPadding, next), nil
	}
	return fmt.Sprintf("%s-%s-%d", base, label, next), nil
}

// HighestIncrement scans available for versions matching prefix-<digits>
// exactly and returns the highest trailing number found, or 0 when none
// match. Versions with a different base or label are ignored, as are
// malformed pool entries.
func (g *SuffixGenerator) HighestIncrement(prefix string, available []string) int {
	highest := 0
	for _, v := range available {
		rest, ok := strings.CutPrefix(v, prefix+"-")
		if !ok || !allDigits(rest) {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// versionBase strips any qualifier from a version, returning the leading
// major.minor.patch core. Versions without a numeric core fall back to the
// part before the first hyphen.
func versionBase(version string) string {
	if base := baseRe.FindString(version); base != "" {
		return base
	}
	if i := strings.IndexByte(version, '-'); i >= 0 {
		return version[:i]
	}
	return version
}

func endsInDigits(s string) bool {
	i := strings.LastIndexByte(s, '-')
	if i < 0 || i == len(s)-1 {
		return false
	}
	return allDigits(s[i+1:])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
