// Package strings holds the small wording helpers shared by the CLI and both
// browsers.
package strings

import "strconv"

// Pluralize returns word for a count of one and word+"s" otherwise.
func Pluralize(word string, count int64) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// CountNoun renders "1 file", "3 files".
func CountNoun(count int64, word string) string {
	return strconv.FormatInt(count, 10) + " " + Pluralize(word, count)
}
