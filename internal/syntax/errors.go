package syntax

import "fmt"

// ParseError represents a tree-sitter parse failure.
type ParseError struct {
	File    string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse %s: %s", e.File, e.Message)
	}
	return "parse: " + e.Message
}

// UnsupportedLanguageError is returned when no grammar is available.
type UnsupportedLanguageError struct {
	Language string
}

// Error implements the error interface.
func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Language)
}
