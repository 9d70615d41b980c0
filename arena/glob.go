package arena

import "strings"

// MatchGlob reports whether name matches the pattern. The pattern supports "*"
// for any sequence and "?" for exactly one character. Matching ignores case.
func MatchGlob(pattern string, name string) bool {
	p := []rune(strings.ToLower(pattern))
	s := []rune(strings.ToLower(name))
	pi, si := 0, 0
	// star is the pattern position after the last seen "*" and mark the name
	// position it currently covers up to.
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star = pi + 1
			mark = si
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case star != -1:
			mark++
			si = mark
			pi = star
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
