// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package scandable bundles a panel that scans mnemonic phrases into
// digit strings. Each word encodes one digit through its letter count, a
// ten-letter word standing for zero. "How I wish I could calculate pi"
// scans to 3141592.
package scandable

import (
	"strings"
	"unicode"
)

// maxWordLength is the largest letter count a word may encode. Longer
// words make the phrase unscannable.
const maxWordLength = 10

// letterCount counts the letters of a word, ignoring punctuation and
// digits attached to it.
func letterCount(word string) int {
	count := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

// Scan encodes a phrase into its word-length digit string. Words longer
// than ten letters, or tokens with no letters at all, make the phrase
// unscannable and Scan reports false.
func Scan(phrase string) (string, bool) {
	fields := strings.Fields(phrase)
	if len(fields) == 0 {
		return "", false
	}

	var digits strings.Builder
	for _, word := range fields {
		n := letterCount(word)
		if n == 0 || n > maxWordLength {
			return "", false
		}
		digits.WriteByte(byte('0' + n%maxWordLength))
	}
	return digits.String(), true
}

// Matches reports whether the phrase scans exactly to the given digit
// string.
func Matches(phrase, digits string) bool {
	got, ok := Scan(phrase)
	return ok && got == digits
}
