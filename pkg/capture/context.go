package capture

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ContextRadius is how many lines on each side of the reported line are read.
const ContextRadius = 1

// ExtractContext reads lines [line-1, line+1] of path (clamped at 1), trims
// them, drops blank ones and formats the rest as "Line {n}: {text}" joined by
// newlines. It reports false when the file cannot be read or nothing remains.
// No error crosses this boundary.
func ExtractContext(path string, line int) (string, bool) {
	if path == "" || line <= 0 {
		return "", false
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	first := max(1, line-ContextRadius)
	last := line + ContextRadius

	var out []string
	r := bufio.NewReader(f)
	for n := 1; n <= last; n++ {
		raw, err := r.ReadString('\n')
		if raw == "" && err != nil {
			break
		}
		if n >= first {
			if text := strings.TrimSpace(raw); text != "" {
				out = append(out, fmt.Sprintf("Line %d: %s", n, text))
			}
		}
		if err != nil {
			break
		}
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, "\n"), true
}
