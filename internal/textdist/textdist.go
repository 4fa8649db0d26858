package textdist

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// Measure pairs an absolute edit distance with its normalized form.
// Candidates are ranked by the normalized value; acceptance thresholds
// apply to the absolute one.
type Measure struct {
	Name       string
	Distance   func(a, b string) float64
	Normalized func(a, b string) float64
}

// Measures returns the ranking measures in evaluation order. The order is
// part of the resolution contract: earlier measures get the first shot at
// proposing a candidate.
func Measures() []Measure {
	return []Measure{
		{Name: "lcsstr", Distance: LCSStrDistance, Normalized: LCSStrNormalized},
		{Name: "lcsseq", Distance: LCSSeqDistance, Normalized: LCSSeqNormalized},
		{Name: "ratcliff_obershelp", Distance: RatcliffDistance, Normalized: RatcliffDistance},
		{Name: "cosine", Distance: CosineDistance, Normalized: CosineDistance},
	}
}

// LCSStrDistance is the length of the longer name minus the longest common
// substring of the two.
func LCSStrDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	return float64(longest - commonSubstring(ra, rb))
}

func LCSStrNormalized(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	return float64(longest-commonSubstring(ra, rb)) / float64(longest)
}

// LCSSeqDistance is like LCSStrDistance but over the longest common
// subsequence, so shared characters do not have to be adjacent.
func LCSSeqDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	return float64(longest - commonSubsequence(ra, rb))
}

func LCSSeqNormalized(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	return float64(longest-commonSubsequence(ra, rb)) / float64(longest)
}

// RatcliffDistance is one minus the Ratcliff/Obershelp similarity ratio.
// Its maximum is 1, so it doubles as its own normalized form.
func RatcliffDistance(a, b string) float64 {
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return 1 - m.Ratio()
}

// CosineDistance is one minus the cosine similarity of the two names seen
// as character multisets.
func CosineDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 1
	}
	counts := make(map[rune]int, len(ra))
	for _, r := range ra {
		counts[r]++
	}
	intersection := 0
	for _, r := range rb {
		if counts[r] > 0 {
			counts[r]--
			intersection++
		}
	}
	return 1 - float64(intersection)/math.Sqrt(float64(len(ra))*float64(len(rb)))
}

// HammingDistance counts positions at which the two names differ. The
// shorter name is padded, so a length difference always counts in full.
func HammingDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer, shorter := ra, rb
	if len(rb) > len(ra) {
		longer, shorter = rb, ra
	}
	d := len(longer) - len(shorter)
	for i := range shorter {
		if shorter[i] != longer[i] {
			d++
		}
	}
	return float64(d)
}

func commonSubstring(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

func commonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		copy(prev, cur)
	}
	return prev[len(b)]
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
