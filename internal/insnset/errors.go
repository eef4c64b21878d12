package insnset

import "fmt"

// TableParseError reports a malformed encoding string or XML table entry.
// It is fatal to the generator run and is never surfaced to an end user
// of the generated decoder.
type TableParseError struct {
	Reason string
}

func (e *TableParseError) Error() string {
	return fmt.Sprintf("instruction table: %s", e.Reason)
}
