// Package parsererror defines the typed errors emitted by the ingestion
// pipeline. Per-row problems are reported as warnings on result structs, not
// as errors; the types here mark failures that abort processing of a file.
package parsererror

import "fmt"

// EncodingError indicates that no candidate encoding decoded the file with a
// confidence above zero. Fatal for the file.
type EncodingError struct {
	FilePath string
	Attempts int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("no usable encoding found for %s after %d attempts", e.FilePath, e.Attempts)
}

// DialectError indicates that delimiter detection produced a zero score. The
// caller falls back to a comma dialect and records low confidence.
type DialectError struct {
	FilePath string
}

func (e *DialectError) Error() string {
	return fmt.Sprintf("could not detect CSV dialect for %s", e.FilePath)
}

// StructureError indicates that no header row was detectable while the caller
// required headers.
type StructureError struct {
	FilePath string
	Reason   string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure analysis failed for %s: %s", e.FilePath, e.Reason)
}

// ParsingError indicates that every parsing strategy failed for a file.
type ParsingError struct {
	FilePath string
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("all parsing strategies failed for %s: %v", e.FilePath, e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// BankNotDetectedError is non-fatal: downstream falls back to identity
// mapping on headers and global cleaning rules.
type BankNotDetectedError struct {
	FilePath string
}

func (e *BankNotDetectedError) Error() string {
	return fmt.Sprintf("no bank detected for %s", e.FilePath)
}

// HeaderValidationError indicates that a configured header row did not match
// the expected headers closely enough. Non-fatal: the caller falls back to
// automatic header detection.
type HeaderValidationError struct {
	FilePath  string
	Expected  []string
	Observed  []string
	MatchRate float64
}

func (e *HeaderValidationError) Error() string {
	return fmt.Sprintf("configured header row for %s matched only %.0f%% of expected headers",
		e.FilePath, e.MatchRate*100)
}
