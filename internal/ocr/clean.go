package ocr

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultLabels are the receipt field labels canonicalized by the cleanup
// pass. Brazilian receipts mix casing and separators freely ("VALOR",
// "valor:", "Valor  "), so each label is normalized to "Label: ".
var DefaultLabels = []string{"valor", "data", "hora", "total"}

var (
	reNonPrintable = regexp.MustCompile(`[^\x20-\x7E\n]`)
	reSpaces       = regexp.MustCompile(` +`)
	reNewlines     = regexp.MustCompile(`\n+`)
)

// minLineLen: lines at or below this length are treated as OCR noise.
const minLineLen = 2

// Cleaner applies the deterministic OCR cleanup pass. The pass is
// idempotent: running it twice yields the same output as once.
type Cleaner struct {
	labelPatterns []labelPattern
}

type labelPattern struct {
	re        *regexp.Regexp
	canonical string
}

func NewCleaner(labels []string) *Cleaner {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	c := &Cleaner{}
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			continue
		}
		c.labelPatterns = append(c.labelPatterns, labelPattern{
			re:        regexp.MustCompile(fmt.Sprintf(`(?i)%s[: ]+`, regexp.QuoteMeta(label))),
			canonical: capitalize(label) + ": ",
		})
	}
	return c
}

// Clean normalizes raw OCR output:
//  1. strip characters outside printable ASCII (newlines kept)
//  2. collapse runs of spaces and runs of newlines
//  3. trim each line
//  4. canonicalize known field labels to "Label: "
//  5. drop lines short enough to be noise
func (c *Cleaner) Clean(text string) string {
	cleaned := reNonPrintable.ReplaceAllString(text, "")
	cleaned = reSpaces.ReplaceAllString(cleaned, " ")
	cleaned = reNewlines.ReplaceAllString(cleaned, "\n")

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	cleaned = strings.Join(lines, "\n")

	for _, lp := range c.labelPatterns {
		cleaned = lp.re.ReplaceAllString(cleaned, lp.canonical)
	}

	kept := make([]string, 0, len(lines))
	for _, line := range strings.Split(cleaned, "\n") {
		if len(line) > minLineLen {
			kept = append(kept, line)
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
