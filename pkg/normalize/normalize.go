package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// AccountType classifies a mailbox by its address domain.
type AccountType string

const (
	AccountTypeWork     AccountType = "work"
	AccountTypePersonal AccountType = "personal"
	AccountTypeUnknown  AccountType = "unknown"
)

// consumerDomains are well-known consumer mail providers. Anything else is
// treated as a work domain; users can override downstream.
var consumerDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"msn.com":        {},
	"yahoo.com":      {},
	"ymail.com":      {},
	"icloud.com":     {},
	"me.com":         {},
	"mac.com":        {},
	"aol.com":        {},
	"proton.me":      {},
	"protonmail.com": {},
	"gmx.com":        {},
	"gmx.net":        {},
	"mail.com":       {},
	"zoho.com":       {},
	"yandex.com":     {},
	"yandex.ru":      {},
	"fastmail.com":   {},
	"hey.com":        {},
}

// ClassifyAccountType infers work/personal/unknown from the domain after the
// last "@". Pure function: no I/O, never fails.
func ClassifyAccountType(address string) AccountType {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return AccountTypeUnknown
	}

	domain := strings.ToLower(strings.TrimSpace(address[at+1:]))
	if domain == "" {
		return AccountTypeUnknown
	}

	if _, ok := consumerDomains[domain]; ok {
		return AccountTypePersonal
	}
	return AccountTypeWork
}

var (
	decimalRef = regexp.MustCompile(`&#([0-9]{1,7});`)
	hexRef     = regexp.MustCompile(`&#[xX]([0-9a-fA-F]{1,6});`)
)

// DecodeEntities replaces numeric character references (decimal and hex) and
// the named entities &apos; &quot; &lt; &gt; &amp; with their literal
// characters. &amp; is replaced last so a decoded ampersand cannot feed an
// earlier rule. Unrecognized entities pass through unchanged.
func DecodeEntities(raw string) string {
	out := decimalRef.ReplaceAllStringFunc(raw, func(m string) string {
		n, err := strconv.ParseInt(m[2:len(m)-1], 10, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})

	out = hexRef.ReplaceAllStringFunc(out, func(m string) string {
		n, err := strconv.ParseInt(m[3:len(m)-1], 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})

	out = strings.ReplaceAll(out, "&apos;", "'")
	out = strings.ReplaceAll(out, "&quot;", `"`)
	out = strings.ReplaceAll(out, "&lt;", "<")
	out = strings.ReplaceAll(out, "&gt;", ">")
	out = strings.ReplaceAll(out, "&amp;", "&")
	return out
}
