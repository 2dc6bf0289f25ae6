// Package ignore compiles glob-style ignore rules into a path predicate.
//
// Rule syntax follows common dot-ignore-file conventions: `*` and `**`
// globs, a trailing `/` restricts a rule to directories, a leading `!`
// re-includes a previously ignored path, and `#` starts a comment. Rules
// apply in declaration order with last-match-wins semantics.
//
// Pattern matching is delegated to go-git's gitignore engine; this
// package only handles rule-file parsing and the matcher contract.
package ignore

import (
	"bufio"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Matcher answers whether a relative path should be excluded.
// A nil or empty Matcher matches nothing.
type Matcher struct {
	matcher  gitignore.Matcher
	patterns int
}

// Build compiles an ordered list of rules into a Matcher.
//
// Malformed rules (blank after trimming, or a bare negation) are logged
// and skipped; a broken ignore file must never prevent an operation from
// running. Ignoring nothing is safer than refusing to run.
func Build(rules []string, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[ignore] ", log.LstdFlags)
	}

	var patterns []gitignore.Pattern
	for _, raw := range rules {
		rule := strings.TrimSpace(raw)
		if rule == "" || strings.HasPrefix(rule, "#") {
			continue
		}
		if rule == "!" || rule == "/" || rule == "!/" {
			logger.Printf("skipping malformed ignore rule %q", raw)
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(rule, nil))
	}

	return &Matcher{
		matcher:  gitignore.NewMatcher(patterns),
		patterns: len(patterns),
	}
}

// Parse reads newline-delimited rules and builds a Matcher.
func Parse(r io.Reader, logger *log.Logger) (*Matcher, error) {
	var rules []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		rules = append(rules, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return Build(rules, logger), nil
}

// Load reads an ignore file from disk. A missing file yields an empty
// Matcher, not an error.
func Load(path string, logger *log.Logger) (*Matcher, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Build(nil, logger), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, logger)
}

// Matches reports whether the slash-separated relative path is excluded.
// Later rules override earlier ones for the same path.
func (m *Matcher) Matches(relPath string, isDir bool) bool {
	if m == nil || m.patterns == 0 {
		return false
	}
	return m.matcher.Match(strings.Split(relPath, "/"), isDir)
}

// RuleCount returns the number of compiled rules.
func (m *Matcher) RuleCount() int {
	if m == nil {
		return 0
	}
	return m.patterns
}
