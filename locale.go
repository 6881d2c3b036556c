package formula

import (
	"strings"
	"unicode"
)

// Default character sets. Names of constants, variables and functions are
// drawn from DefaultNameChars, binary and postfix operators from
// DefaultOprtChars, and prefix operators from DefaultInfixOprtChars.
const (
	DefaultNameChars      = "0123456789_abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultOprtChars      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+-*^/?<>=#!$%&|~'_{}"
	DefaultInfixOprtChars = "/+-*^?<>=#!$%&|~'_"
)

// locale holds the separator characters that affect scanning. A zero
// thousands separator means none.
type locale struct {
	dec       rune
	arg       rune
	thousands rune
}

var defaultLocale = locale{dec: '.', arg: ','}

// check reports whether the separators can be scanned unambiguously.
func (l locale) check() error {
	switch {
	case l.dec == l.arg:
		return &LocaleError{Dec: l.dec, Arg: l.arg, Thousands: l.thousands, Conflict: "argument"}
	case l.thousands != 0 && l.thousands == l.dec:
		return &LocaleError{Dec: l.dec, Arg: l.arg, Thousands: l.thousands, Conflict: "thousands"}
	case l.thousands != 0 && l.thousands == l.arg:
		return &LocaleError{Dec: l.dec, Arg: l.arg, Thousands: l.thousands, Conflict: "thousands-argument"}
	}
	return nil
}

// validSep reports whether r can serve as a separator at all. Digits,
// whitespace, quotes, and parentheses would make every expression ambiguous.
func validSep(r rune) bool {
	return r != 0 && !unicode.IsSpace(r) && !unicode.IsDigit(r) && r != '(' && r != ')' && r != '"'
}

// charsets holds the runes allowed in names and operators.
type charsets struct {
	name  string
	oprt  string
	infix string
}

var defaultCharsets = charsets{
	name:  DefaultNameChars,
	oprt:  DefaultOprtChars,
	infix: DefaultInfixOprtChars,
}

func (c *charsets) isName(r rune) bool {
	return strings.ContainsRune(c.name, r)
}

// validName checks that s is usable as the name of a constant, variable or
// function: non-empty, made of name runes, and not starting with a digit.
func (c *charsets) validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !c.isName(r) {
			return false
		}
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// validOprt checks that s is made entirely of runes from set.
func validOprt(s, set string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(set, r) {
			return false
		}
	}
	return true
}
