package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError reports why a pipeline or predicate cannot be compiled.
type ValidationError struct {
	Stage   int // index of the offending stage, -1 for predicate-level errors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Stage >= 0 {
		return fmt.Sprintf("pipeline stage %d: %s", e.Stage, e.Message)
	}
	return "pipeline: " + e.Message
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the [Match] → Group → [MinCount] shape, field names and
// predicate types.
func (p Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return &ValidationError{Stage: -1, Message: "empty pipeline"}
	}

	seenGroup := false
	for i, s := range p.Stages {
		switch st := s.(type) {
		case Match:
			if i != 0 {
				return &ValidationError{Stage: i, Message: "match must be the first stage"}
			}
			if err := ValidatePredicate(st.Predicate); err != nil {
				return &ValidationError{Stage: i, Message: err.Error()}
			}
		case Group:
			if seenGroup {
				return &ValidationError{Stage: i, Message: "only one group stage allowed"}
			}
			seenGroup = true
			if err := validateKeys(st.Keys); err != nil {
				return &ValidationError{Stage: i, Message: err.Error()}
			}
		case MinCount:
			if !seenGroup || i != len(p.Stages)-1 {
				return &ValidationError{Stage: i, Message: "min count must directly follow group as the last stage"}
			}
			if st.N < 1 {
				return &ValidationError{Stage: i, Message: fmt.Sprintf("min count must be >= 1, got %d", st.N)}
			}
		default:
			return &ValidationError{Stage: i, Message: fmt.Sprintf("unsupported stage type %T", s)}
		}
	}

	if !seenGroup {
		return &ValidationError{Stage: -1, Message: "missing group stage"}
	}
	return nil
}

func validateKeys(keys []KeyField) error {
	if len(keys) == 0 {
		return fmt.Errorf("group needs at least one key field")
	}
	names := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.Name == "" {
			return fmt.Errorf("key field on %q has no name", k.Field)
		}
		if names[k.Name] {
			return fmt.Errorf("duplicate key name %q", k.Name)
		}
		names[k.Name] = true
		if !k.Field.Valid() {
			return fmt.Errorf("unknown field %q", k.Field)
		}
		if k.Transform != TransformNone && k.Transform != TransformFold {
			return fmt.Errorf("unknown transform %q", k.Transform)
		}
	}
	return nil
}

// ValidatePredicate checks field names and predicate types. A nil predicate
// is valid and matches everything.
func ValidatePredicate(p Predicate) error {
	switch pr := p.(type) {
	case nil:
		return nil
	case Equals:
		if !pr.Field.Valid() {
			return fmt.Errorf("unknown field %q", pr.Field)
		}
	case In:
		if !pr.Field.Valid() {
			return fmt.Errorf("unknown field %q", pr.Field)
		}
	case And:
		for i, sub := range pr.Predicates {
			if err := ValidatePredicate(sub); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported predicate type %T", p)
	}
	return nil
}
