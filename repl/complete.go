// Copyright © 2021 The Lust authors

package repl

import (
	"sort"
	"strings"

	"github.com/ZekeMedley/lust/lust"
)

// symbolCompleter implements readline.AutoCompleter over the language's
// fixed vocabulary. The language has no persistent global environment, so
// only special forms, primitives, and literals can be offered.
type symbolCompleter struct{}

var completionWords = func() []string {
	words := []string{"let", "if", "fn", "true", "false"}
	words = append(words, lust.Primitives()...)
	sort.Strings(words)
	return words
}()

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' || ch == '(' || ch == '\n' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	var result [][]rune
	for _, word := range completionWords {
		if strings.HasPrefix(word, prefix) {
			result = append(result, []rune(word[len(prefix):]))
		}
	}
	return result, len(prefix)
}
