package analysis

import (
	"fmt"
	"strings"

	"github.com/ngoyal88/logwise/pkg/capture"
)

// BuildPrompt assembles the fixed analysis template for rec.
func BuildPrompt(rec capture.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze this error in a %s context:\n\n", rec.Framework)
	fmt.Fprintf(&sb, "File: %s\n", rec.File)
	fmt.Fprintf(&sb, "Line: %d\n", rec.Line)
	fmt.Fprintf(&sb, "Message: %s\n", rec.Message)
	fmt.Fprintf(&sb, "Timestamp: %s\n", rec.Timestamp)
	fmt.Fprintf(&sb, "Code context:\n\n%s\n\n", rec.CodeContext)

	sb.WriteString("1. A probable explanation of the error\n")
	sb.WriteString("2. A concrete fix, with a code example if possible\n")
	sb.WriteString("3. A prevention strategy so it does not happen again\n")

	return sb.String()
}
