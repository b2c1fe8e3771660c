package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/michikitagawa/ojohoe/internal/config"
)

// namePatterns are tried in order; capture group 1 is the candidate name.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`私の名前は(.+?)(?:です|だよ|だ|よ|。|$)`),
	regexp.MustCompile(`名前は(.+?)(?:です|だよ|だ|よ|。|$)`),
	regexp.MustCompile(`^(.+?)(?:って言います|と言います|と申します)`),
	regexp.MustCompile(`^(.+?)(?:って|と)(?:呼んで|言って)`),
	regexp.MustCompile(`(?i)\bmy name is\s+([^\s,.!?]+)`),
	regexp.MustCompile(`(?i)\bcall me\s+([^\s,.!?]+)`),
}

const nameTrimSet = " \t\r\n　「」『』\"'、,"

// ExtractName looks for a self-introduction in text. A candidate is accepted when it
// is 1 to 10 characters long and not only digits; otherwise the next pattern is tried.
func ExtractName(text string) (string, bool) {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.Trim(m[1], nameTrimSet)
		if validName(name) {
			return name, true
		}
	}
	return "", false
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < config.MinNameLen || n > config.MaxNameLen {
		return false
	}
	for _, r := range name {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
