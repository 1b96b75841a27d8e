// Package depscan scans guest-language source text for third-party
// package imports.
//
// The scan is regex-based and has no awareness of comments or string
// context: a commented-out require/import produces a spurious
// dependency. This is a known limitation, not a bug to fix here — the
// guest package manager will simply install an unused package.
package depscan

import (
	"regexp"
	"strings"
)

// Set is a dependency name -> version constraint mapping. Every
// constraint this package produces is "latest"; the guest package
// manager interprets it.
type Set map[string]string

const constraintLatest = "latest"

var requireStyle = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

var importStyle = regexp.MustCompile(`import\s+(?:[\w*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)

// builtins is the fixed list of guest-language built-in modules; a
// specifier matching one of these is never a dependency.
var builtins = map[string]struct{}{
	"assert": {}, "buffer": {}, "child_process": {}, "cluster": {}, "console": {},
	"constants": {}, "crypto": {}, "dgram": {}, "dns": {}, "domain": {}, "events": {},
	"fs": {}, "http": {}, "https": {}, "module": {}, "net": {}, "os": {}, "path": {},
	"punycode": {}, "querystring": {}, "readline": {}, "repl": {}, "stream": {},
	"string_decoder": {}, "sys": {}, "timers": {}, "tls": {}, "tty": {}, "url": {},
	"util": {}, "v8": {}, "vm": {}, "zlib": {}, "process": {},
}

// Extract scans source for require()/import specifiers and returns the
// deduplicated set of third-party package names, each pinned to
// "latest".
func Extract(source string) Set {
	deps := make(Set)

	for _, m := range requireStyle.FindAllStringSubmatch(source, -1) {
		addSpecifier(deps, m[1])
	}
	for _, m := range importStyle.FindAllStringSubmatch(source, -1) {
		addSpecifier(deps, m[1])
	}

	return deps
}

func addSpecifier(deps Set, specifier string) {
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return // local module path, not a package dependency
	}
	name := canonicalName(specifier)
	if name == "" {
		return
	}
	if _, builtin := builtins[name]; builtin {
		return
	}
	deps[name] = constraintLatest
}

// canonicalName strips a trailing "@version" pin from a package
// specifier. Scoped packages ("@scope/pkg@1.2.3") keep their
// "@scope/pkg" prefix; unscoped packages keep everything up to the
// first '@'.
func canonicalName(specifier string) string {
	if specifier == "" {
		return ""
	}

	if strings.HasPrefix(specifier, "@") {
		rest := specifier[1:]
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return ""
		}
		scope := rest[:slash]
		remainder := rest[slash+1:]
		if at := strings.IndexByte(remainder, '@'); at >= 0 {
			remainder = remainder[:at]
		}
		if scope == "" || remainder == "" {
			return ""
		}
		return "@" + scope + "/" + remainder
	}

	if at := strings.IndexByte(specifier, '@'); at >= 0 {
		specifier = specifier[:at]
	}
	return specifier
}
