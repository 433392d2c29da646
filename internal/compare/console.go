package compare

import (
	"fmt"
	"io"
	"strings"
)

var separator = strings.Repeat("-", 50)

// WriteResult prints the console lines for one result.
func WriteResult(w io.Writer, r Result) {
	switch r.Status {
	case StatusError:
		fmt.Fprintf(w, "%s failed: %s\n", r.Name, r.Err)
		return
	case StatusMissingOld:
		fmt.Fprintf(w, "%s is missing in old\n", r.Name)
		return
	case StatusMissingNew:
		fmt.Fprintf(w, "%s is missing in new\n", r.Name)
		return
	}

	if r.Identical {
		fmt.Fprintf(w, "%s is identical\n", r.Name)
	} else {
		fmt.Fprintf(w, "%s is different\n", r.Name)
	}
	if len(r.Differences) > 0 {
		fmt.Fprintln(w, "Differences found:")
		for _, d := range r.Differences {
			fmt.Fprintln(w, d)
		}
		fmt.Fprintln(w, separator)
	}
}

// WriteSummary prints the closing line of a run.
func WriteSummary(w io.Writer, total int) {
	fmt.Fprintf(w, "\nReport generated with %d files compared.\n", total)
}
