package patterns

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// maxExamples is the number of example tags kept per pattern.
const maxExamples = 3

// minGroupSize is the number of tags a shape needs before it is reported.
const minGroupSize = 2

// KnownPatterns labels regexes that detection commonly produces.
var KnownPatterns = map[string]string{
	`^[0-9]+\.[0-9]+\.[0-9]+$`:                   "Semantic version (X.Y.Z)",
	`^v[0-9]+\.[0-9]+\.[0-9]+$`:                  "Semantic version with v (vX.Y.Z)",
	`^v[0-9]+\.[0-9]+\.[0-9]+-ls[0-9]+$`:         "LinuxServer with v (vX.Y.Z-lsN)",
	`^[0-9]+\.[0-9]+\.[0-9]+-ls[0-9]+$`:          "LinuxServer (X.Y.Z-lsN)",
	`^[0-9]+\.[0-9]+\.[0-9]+\.[0-9]+-ls[0-9]+$`:  "LinuxServer 4-part (W.X.Y.Z-lsN)",
	`^[0-9]+\.[0-9]+\.[0-9]+-r[0-9]+-ls[0-9]+$`:  "LinuxServer with revision (X.Y.Z-rN-lsN)",
	`^[0-9]+\.[0-9]+\.[0-9]+\.[0-9]+-[0-9a-f]+$`: "Version with git hash (W.X.Y.Z-hash)",
	`^[0-9]+\.[0-9]+$`:                           "Major.Minor (X.Y)",
}

// noiseTags never describe a version.
var noiseTags = map[string]struct{}{
	"latest": {}, "nightly": {}, "develop": {}, "development": {}, "dev": {},
	"edge": {}, "master": {}, "main": {}, "stable": {}, "unstable": {},
	"testing": {}, "beta": {}, "alpha": {}, "rc": {}, "next": {}, "canary": {},
	"preview": {}, "experimental": {}, "plexpass": {}, "public": {}, "alpine": {},
}

var (
	archTag    = regexp.MustCompile(`^(linux-)?(amd64|arm64|arm64v8|armhf|i386|s390x)$`)
	archSuffix = regexp.MustCompile(`-(amd64|arm64|arm64v8|armhf|i386|s390x)$`)
	alphaTag   = regexp.MustCompile(`^[a-zA-Z][-a-zA-Z]*$`)
)

// Pattern is one detected version tag shape.
type Pattern struct {
	Regex      string   `json:"regex"`
	Label      string   `json:"label"`
	MatchCount int      `json:"match_count"`
	Examples   []string `json:"example_tags"`

	recency int
}

type member struct {
	tag    string
	tokens []Token
}

// DetectTagPatterns derives version patterns from tags, which are expected in
// push order with the most recently pushed tag last.
//
// Returns:
//   - []Pattern: Patterns with at least two matching tags, most recently pushed first.
func DetectTagPatterns(tags []string) []Pattern {
	filtered := lo.Filter(tags, func(tag string, _ int) bool {
		return !isNoise(tag)
	})
	if len(filtered) == 0 {
		return nil
	}

	position := make(map[string]int, len(filtered))
	for index, tag := range filtered {
		position[tag] = index
	}

	groups := map[string][]member{}

	var order []string

	for _, tag := range filtered {
		tokens := Tokenize(tag)
		if len(tokens) == 0 {
			continue
		}

		signature := Signature(tokens)
		if _, seen := groups[signature]; !seen {
			order = append(order, signature)
		}

		groups[signature] = append(groups[signature], member{tag: tag, tokens: tokens})
	}

	var patterns []Pattern

	for _, signature := range order {
		members := groups[signature]
		if len(members) < minGroupSize {
			continue
		}

		source := regexFromGroup(members)

		compiled, err := regexp.Compile(source)
		if err != nil {
			continue
		}

		matching := lo.FilterMap(members, func(m member, _ int) (string, bool) {
			return m.tag, compiled.MatchString(m.tag)
		})
		if len(matching) < minGroupSize {
			continue
		}

		label, known := KnownPatterns[source]
		if !known {
			label = autoLabel(source)
		}

		examples := slices.Clone(matching[max(0, len(matching)-maxExamples):])
		slices.Reverse(examples)

		patterns = append(patterns, Pattern{
			Regex:      source,
			Label:      label,
			MatchCount: len(matching),
			Examples:   examples,
			recency: lo.Max(lo.Map(matching, func(tag string, _ int) int {
				return position[tag]
			})),
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].recency > patterns[j].recency
	})

	return patterns
}

// DetectBaseTags returns the tags matching none of the detected patterns,
// minus architecture variants and digests, most recently pushed first.
func DetectBaseTags(tags []string, patterns []Pattern) []string {
	compiled := lo.FilterMap(patterns, func(p Pattern, _ int) (*regexp.Regexp, bool) {
		re, err := regexp.Compile(p.Regex)

		return re, err == nil
	})

	candidates := lo.Filter(tags, func(tag string, _ int) bool {
		if isStructuralNoise(tag) {
			return false
		}

		return !lo.SomeBy(compiled, func(re *regexp.Regexp) bool {
			return re.MatchString(tag)
		})
	})

	slices.Reverse(candidates)

	return candidates
}

// isNoise reports whether tag can never be a version tag.
func isNoise(tag string) bool {
	if _, noisy := noiseTags[strings.ToLower(tag)]; noisy {
		return true
	}

	return isStructuralNoise(tag) || alphaTag.MatchString(tag)
}

// isStructuralNoise covers single characters, digest references and
// architecture tags.
func isStructuralNoise(tag string) bool {
	lower := strings.ToLower(tag)

	return len(tag) <= 1 ||
		strings.HasPrefix(tag, "sha-") ||
		strings.HasPrefix(tag, "sha256:") ||
		archTag.MatchString(lower) ||
		archSuffix.MatchString(lower)
}

// regexFromGroup builds an anchored regex for tags sharing one signature.
// Letter runs stay literal when every member agrees on them.
func regexFromGroup(members []member) string {
	var builder strings.Builder

	builder.WriteString("^")

	for pos, token := range members[0].tokens {
		switch token.Type {
		case Num:
			builder.WriteString("[0-9]+")
		case Dot:
			builder.WriteString(`\.`)
		case Dash:
			builder.WriteString("-")
		case PrefixV:
			builder.WriteString("v")
		case Hex:
			builder.WriteString("[0-9a-f]+")
		case Alpha:
			literals := lo.Uniq(lo.Map(members, func(m member, _ int) string {
				return m.tokens[pos].Literal
			}))
			if len(literals) == 1 {
				builder.WriteString(regexp.QuoteMeta(literals[0]))
			} else {
				builder.WriteString("[a-z]+")
			}
		}
	}

	builder.WriteString("$")

	return builder.String()
}

var labelReplacer = strings.NewReplacer(
	"[0-9]+", "N",
	`\.`, ".",
	"[0-9a-f]+", "hash",
	"[a-z]+", "text",
)

func autoLabel(source string) string {
	return "Pattern: " + labelReplacer.Replace(strings.TrimSuffix(strings.TrimPrefix(source, "^"), "$"))
}
