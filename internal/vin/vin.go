package vin

import (
	"regexp"
	"strings"
)

const Length = 17

var (
	nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)
	valid    = regexp.MustCompile(`^[A-Z0-9]{17}$`)
)

const (
	MsgLength  = "VIN must be exactly 17 characters"
	MsgCharset = "VIN may only contain letters and numbers"
)

// Normalize uppercases and strips everything that is not a letter or digit.
func Normalize(raw string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(raw, ""))
}

// Validate returns "" for a valid VIN, otherwise a user-facing message.
func Validate(raw string) string {
	cleaned := Normalize(raw)
	if len(cleaned) != Length {
		return MsgLength
	}
	if !valid.MatchString(cleaned) {
		return MsgCharset
	}
	return ""
}
