package syntax

import (
	"fmt"

	"github.com/quivent/fast-forth/logging"
)

// ParseError reports malformed source text.  It carries the position of the
// offending token so callers can display the selection.
type ParseError struct {
	Message string
	Pos     *logging.TextPosition
}

func (pe *ParseError) Error() string {
	if pe.Pos != nil {
		return fmt.Sprintf("%s (line %d)", pe.Message, pe.Pos.StartLn)
	}

	return pe.Message
}
