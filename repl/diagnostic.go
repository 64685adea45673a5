// Copyright © 2021 The Lust authors

package repl

import (
	"errors"
	"fmt"
	"io"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ZekeMedley/lust/lust"
)

const errorWidth = 76

// renderError prints a compiler error with its condition on the first line
// and the wrapped message indented beneath it. Errors without a condition
// print on a single line.
func renderError(w io.Writer, err error) {
	var cerr *lust.Error
	if !errors.As(err, &cerr) {
		fmt.Fprintf(w, "error: %s\n", err) //nolint:errcheck // best-effort error display
		return
	}
	fmt.Fprintf(w, "error: %s\n", cerr.Condition) //nolint:errcheck // best-effort error display
	wrapped := wordwrap.String(cerr.Message, errorWidth)
	fmt.Fprintln(w, indent.String(wrapped, 2)) //nolint:errcheck // best-effort error display
}
