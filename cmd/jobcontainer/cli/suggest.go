// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance still offered as
// a "did you mean" suggestion.
const maxSuggestionDistance = 3

// closest returns the candidate nearest to name, or "" when none is
// within maxSuggestionDistance. Ties go to the earlier candidate.
func closest(name string, candidates []string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		if distance := editDistance(name, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

func commandNames(commands []*Command) []string {
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.Name)
	}
	return names
}

func flagNames(flagSet *pflag.FlagSet) []string {
	var names []string
	flagSet.VisitAll(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})
	return names
}

// unknownFlagName extracts the long flag name from pflag's
// "unknown flag: --name" parse error. Shorthand errors and every other
// parse error yield "".
func unknownFlagName(err error) string {
	name, found := strings.CutPrefix(err.Error(), "unknown flag: --")
	if !found {
		return ""
	}
	name, _, _ = strings.Cut(name, "=")
	return name
}

// editDistance is the Levenshtein distance between a and b, counted in
// runes.
func editDistance(a, b string) int {
	source, target := []rune(a), []rune(b)
	previous := make([]int, len(target)+1)
	current := make([]int, len(target)+1)
	for column := range previous {
		previous[column] = column
	}
	for row := 1; row <= len(source); row++ {
		current[0] = row
		for column := 1; column <= len(target); column++ {
			substitution := previous[column-1]
			if source[row-1] != target[column-1] {
				substitution++
			}
			current[column] = min(previous[column]+1, current[column-1]+1, substitution)
		}
		previous, current = current, previous
	}
	return previous[len(target)]
}
