// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"errors"
	"fmt"
	"strings"
)

// UndeclaredError reports requested permissions whose category the
// manifest does not declare.
type UndeclaredError struct {
	Declared  Set
	Offending []Permission
}

func (e *UndeclaredError) Error() string {
	items := make([]string, len(e.Offending))
	for index, item := range e.Offending {
		items[index] = fmt.Sprintf("%s (requires %s)", item, item.Category())
	}
	return fmt.Sprintf("permissions not covered by declared capabilities %s: %s",
		e.Declared, strings.Join(items, ", "))
}

// InvalidError reports structurally malformed permissions.
type InvalidError struct {
	Problems []error
}

func (e *InvalidError) Error() string {
	messages := make([]string, len(e.Problems))
	for index, problem := range e.Problems {
		messages[index] = problem.Error()
	}
	return "invalid permissions: " + strings.Join(messages, "; ")
}

// Unwrap returns the individual problems.
func (e *InvalidError) Unwrap() []error {
	return e.Problems
}

// Validate checks every requested permission against the declared
// categories. On success it returns requested unchanged. Malformed
// permissions are reported in an *InvalidError and well-formed
// permissions whose category is not declared in an *UndeclaredError.
// When a batch has both kinds, the two are joined, so every offending
// permission is named. The batch is never partially accepted.
func Validate(declared Set, requested []Permission) ([]Permission, error) {
	var problems []error
	var offending []Permission
	for _, item := range requested {
		if item == nil {
			problems = append(problems, fmt.Errorf("nil permission"))
			continue
		}
		if err := item.Check(); err != nil {
			problems = append(problems, err)
			continue
		}
		if !declared.Has(item.Category()) {
			offending = append(offending, item)
		}
	}

	var invalidErr, undeclaredErr error
	if len(problems) > 0 {
		invalidErr = &InvalidError{Problems: problems}
	}
	if len(offending) > 0 {
		undeclaredErr = &UndeclaredError{Declared: declared, Offending: offending}
	}
	if err := errors.Join(invalidErr, undeclaredErr); err != nil {
		return nil, err
	}
	return requested, nil
}
