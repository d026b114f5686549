package convergence

// firstBalancedBraceBlock scans text for the first top-level {...} block,
// honoring string quoting so that braces inside JSON string values don't
// confuse the scan. Models routinely wrap their JSON in markdown fences or
// surrounding prose; this tolerates all of that by only caring about the
// first balanced block.
func firstBalancedBraceBlock(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return text[start : i+1], true
				}
			}
		}
	}

	return "", false
}
