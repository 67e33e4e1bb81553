// Package i18n localizes console and CLI output.
//
// Messages are keyed by their English text. Translations live in a private
// catalog, so a missing entry prints the English key unchanged.
package i18n

import (
	"context"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we ship translations for.
var SupportedLangs = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var matcher = language.NewMatcher(SupportedLangs)

var cat = catalog.NewBuilder(catalog.Fallback(DefaultLang))

func init() {
	for key, msg := range simplifiedChinese {
		if err := cat.SetString(language.SimplifiedChinese, key, msg); err != nil {
			panic("i18n: " + err.Error())
		}
	}
}

type contextKey struct{}

// printerKey is the key used to store the printer in the context
var printerKey = contextKey{}

// MatchLanguage returns the best supported language for an Accept-Language
// style preference list.
func MatchLanguage(acceptLang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(acceptLang)
	_, idx, _ := matcher.Match(tags...)
	return SupportedLangs[idx]
}

// Parse maps a locale name such as "zh_CN.UTF-8", "zh-Hans" or "en" to a
// supported language. Unknown or empty input yields DefaultLang.
func Parse(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i != -1 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLang
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLang
	}
	_, idx, _ := matcher.Match(tag)
	return SupportedLangs[idx]
}

// Resolve picks the output language: an explicit preference wins, then
// LC_ALL, LC_MESSAGES and LANG.
func Resolve(preferred string, getenv func(string) string) language.Tag {
	if preferred != "" {
		return Parse(preferred)
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			return Parse(v)
		}
	}
	return DefaultLang
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// NewCLIPrinter returns a printer for the configured language, falling back
// to the process locale.
func NewCLIPrinter(preferred string) *message.Printer {
	return NewPrinter(Resolve(preferred, os.Getenv))
}

// WithPrinter returns a new context with the printer injected
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or a default one
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return NewPrinter(DefaultLang)
	}
	return p
}
