package normalize

import "strings"

// collectDeclaratorNames extracts every bound identifier from an
// "export const/let/var <declarators>;" tail, handling comma-separated
// declarators and nested destructuring patterns.
func collectDeclaratorNames(declarators string) []string {
	declarators = strings.TrimSuffix(strings.TrimSpace(declarators), ";")
	var names []string
	for _, decl := range splitTopLevel(declarators) {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		target := decl
		if idx := topLevelAssign(decl); idx != -1 {
			target = decl[:idx]
		}
		names = append(names, parseBindingTarget(target)...)
	}
	return names
}

// parseBindingTarget extracts bound identifiers from a single binding
// target: a plain identifier, or an object/array destructuring pattern,
// recursing through rest elements, nested patterns, and default values.
func parseBindingTarget(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "...") {
		return parseBindingTarget(s[3:])
	}
	if idx := topLevelAssign(s); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}
	switch {
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		inner := s[1 : len(s)-1]
		var names []string
		for _, item := range splitTopLevel(inner) {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if strings.HasPrefix(item, "...") {
				names = append(names, strings.TrimSpace(item[3:]))
				continue
			}
			if idx := strings.Index(item, ":"); idx != -1 {
				names = append(names, parseBindingTarget(item[idx+1:])...)
				continue
			}
			names = append(names, parseBindingTarget(item)...)
		}
		return names
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		inner := s[1 : len(s)-1]
		var names []string
		for _, item := range splitTopLevel(inner) {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			names = append(names, parseBindingTarget(item)...)
		}
		return names
	case identRE.MatchString(s):
		return []string{s}
	default:
		return nil
	}
}

// splitTopLevel splits s on commas that are not nested inside (), [], {},
// or string/template literals.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelAssign returns the index of a top-level default-value "=" in s
// (not "==", "===", "=>", "<=", ">=", "!="), or -1 if there is none.
func topLevelAssign(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && s[i+1] == '=' {
				continue
			}
			if i > 0 {
				prev := s[i-1]
				if prev == '!' || prev == '<' || prev == '>' || prev == '=' {
					continue
				}
			}
			return i
		}
	}
	return -1
}
