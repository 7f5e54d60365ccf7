// Package compiler turns policy source text into validated, optimised,
// signable bundles: parsing (this file), static analysis, linting,
// semantic validation against registered service contracts, bundling, and
// an embedded Rego-compatible evaluator.
package compiler

import (
	"regexp"
	"strings"

	"github.com/eunomia-project/eunomia/core"
)

// ParseResult is what the Parser extracts from one policy source file.
type ParseResult struct {
	Package     string
	Imports     []string
	Rules       []string
	Description string
	Authors     []string
}

var ruleHeadRe = regexp.MustCompile(`^(?:default\s+)?([A-Za-z_][A-Za-z0-9_]*)(?:\[[^\]]*\]|\([^)]*\))?\s*(?::=|=|if\s*\{|\{|\[|\()`)

var importRe = regexp.MustCompile(`^import\s+(\S+)`)

// Parse extracts the package declaration, imports, a best-effort list of
// rule names, and an optional "# METADATA" block from source. file is used
// only to annotate error messages.
func Parse(file, source string) (*ParseResult, error) {
	lines := strings.Split(source, "\n")

	result := &ParseResult{}
	packageFound := false

	metaLines, bodyStart := extractMetadataBlock(lines)
	if metaLines != nil {
		result.Description, result.Authors = parseMetadataFields(metaLines)
	}

	for i := bodyStart; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if !packageFound {
			if !strings.HasPrefix(trimmed, "package") {
				return nil, core.ErrMissingPackage
			}
			pkg := strings.TrimSpace(strings.TrimPrefix(trimmed, "package"))
			if idx := strings.IndexByte(pkg, '#'); idx >= 0 {
				pkg = strings.TrimSpace(pkg[:idx])
			}
			if pkg == "" {
				return nil, &core.ParseError{File: file, Line: i + 1, Message: "empty package name"}
			}
			result.Package = pkg
			packageFound = true
			continue
		}

		if m := importRe.FindStringSubmatch(trimmed); m != nil {
			result.Imports = append(result.Imports, m[1])
			continue
		}

		if m := ruleHeadRe.FindStringSubmatch(trimmed); m != nil {
			result.Rules = append(result.Rules, m[1])
		}
	}

	if !packageFound {
		return nil, core.ErrMissingPackage
	}
	return result, nil
}

// extractMetadataBlock finds a contiguous run of comment lines starting
// with "# METADATA" at the top of the file (skipping leading blank lines),
// returning the block's content lines (without the "# METADATA" marker)
// and the index to resume body scanning from.
func extractMetadataBlock(lines []string) ([]string, int) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || strings.TrimSpace(lines[i]) != "# METADATA" {
		return nil, 0
	}
	i++
	var block []string
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		block = append(block, strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
		i++
	}
	return block, i
}

// parseMetadataFields reads "description:" (single line) and "authors:"
// (followed by "-"-prefixed list items) from a metadata block. Unknown
// fields are ignored.
func parseMetadataFields(block []string) (description string, authors []string) {
	for i := 0; i < len(block); i++ {
		line := strings.TrimSpace(block[i])
		switch {
		case strings.HasPrefix(line, "description:"):
			description = strings.TrimSpace(strings.TrimPrefix(line, "description:"))
		case strings.HasPrefix(line, "authors:"):
			for j := i + 1; j < len(block); j++ {
				item := strings.TrimSpace(block[j])
				if !strings.HasPrefix(item, "-") {
					break
				}
				authors = append(authors, strings.TrimSpace(strings.TrimPrefix(item, "-")))
				i = j
			}
		}
	}
	return description, authors
}
