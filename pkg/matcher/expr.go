// SPDX-License-Identifier: GPL-3.0-or-later

package matcher

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	Matcher interface {
		MatchString(string) bool
	}

	// SimpleExpr is a simple expression to describe the condition:
	//     (includes[0].Match(v) || includes[1].Match(v) || ...) && !(excludes[0].Match(v) || excludes[1].Match(v) || ...)
	// Every item is a doublestar glob pattern.
	SimpleExpr struct {
		Includes []string `yaml:"includes,omitempty" json:"includes"`
		Excludes []string `yaml:"excludes,omitempty" json:"excludes"`
	}
)

var ErrEmptyExpr = errors.New("empty expression")

// Empty returns true if both Includes and Excludes are empty.
func (s *SimpleExpr) Empty() bool {
	return len(s.Includes) == 0 && len(s.Excludes) == 0
}

// Parse validates the patterns in Includes and Excludes.
func (s *SimpleExpr) Parse() (Matcher, error) {
	if s.Empty() {
		return nil, ErrEmptyExpr
	}

	for _, items := range [][]string{s.Includes, s.Excludes} {
		for _, item := range items {
			if !doublestar.ValidatePattern(item) {
				return nil, fmt.Errorf("parse matcher %q error: %v", item, doublestar.ErrBadPattern)
			}
		}
	}

	return &simpleMatcher{
		includes: append([]string(nil), s.Includes...),
		excludes: append([]string(nil), s.Excludes...),
	}, nil
}

type simpleMatcher struct {
	includes []string
	excludes []string
}

func (m *simpleMatcher) MatchString(s string) bool {
	if len(m.includes) > 0 && !matchAny(m.includes, s) {
		return false
	}
	return !matchAny(m.excludes, s)
}

func matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		// patterns are validated in Parse
		if ok, _ := doublestar.Match(p, s); ok {
			return true
		}
	}
	return false
}

type trueMatcher struct{}

func (trueMatcher) MatchString(string) bool { return true }

// TRUE returns a Matcher that matches everything.
func TRUE() Matcher { return trueMatcher{} }
