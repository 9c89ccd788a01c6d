package fragmenter

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every configuration error.
	ErrConfig = errors.New("invalid fragmenter configuration")
	// ErrOverflow is matched by an overflow reported in strict mode.
	ErrOverflow = errors.New("fragment exceeds maximum length")
)

// ConfigError reports options that can never produce valid output.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// OverflowError reports an atomic unit that did not fit even an empty fragment.
// It is only returned when Options.Strict is set; otherwise the fragment is
// emitted with its Overflow flag set.
type OverflowError struct {
	Fragment int // 1-based index of the oversized fragment
	Length   int
	MaxLen   int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("fragment #%d is %d chars, exceeds max length %d", e.Fragment, e.Length, e.MaxLen)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}
