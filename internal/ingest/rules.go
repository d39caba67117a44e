package ingest

import "strings"

// #region rules

// threatSignatures are the operator rules that pre-label a request hostile.
// Matched case-insensitively against the decoded target and user agent.
var threatSignatures = []string{
	"../",
	"/etc/passwd",
	"/etc/shadow",
	"cgi-bin",
	"cmd.exe",
	"/bin/sh",
	"union select",
	"or 1=1",
	"<script",
	"${jndi:",
	"eval(",
	"base64_decode",
	"wget ",
	"curl ",
	"sqlmap",
	"nikto",
	"masscan",
	"zgrab",
}

// Suspicious reports whether the text trips any threat signature.
func Suspicious(text string) bool {
	lower := strings.ToLower(text)
	for _, sig := range threatSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// #endregion rules
