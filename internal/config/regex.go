package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultRegexTimeout bounds the test match run by CompilePattern.
const DefaultRegexTimeout = 2 * time.Second

// regexSampleLength is the length of the run of "a" characters matched against
// every pattern at load time.
const regexSampleLength = 100

// CompilePattern compiles source and runs a bounded test match against it.
//
// Parameters:
//   - source: Regex pattern from the configuration.
//   - timeout: Upper bound for the test match.
//
// Returns:
//   - *regexp.Regexp: Compiled pattern.
//   - error: ErrInvalidRegex or ErrUnsafeRegex, wrapped with the pattern.
func CompilePattern(source string, timeout time.Duration) (*regexp.Regexp, error) {
	compiled, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidRegex, source, err)
	}

	sample := strings.Repeat("a", regexSampleLength)
	done := make(chan struct{})

	go func() {
		defer close(done)

		compiled.MatchString(sample)
	}()

	select {
	case <-done:
		return compiled, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: %q", ErrUnsafeRegex, source)
	}
}
