package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidMarker indicates a marker name that is not a TypeScript identifier
	ErrInvalidMarker = errors.New("invalid marker name")

	// ErrInvalidExtension indicates a source extension without a leading dot
	ErrInvalidExtension = errors.New("invalid source extension")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrEmptyTSConfigName indicates a missing tsconfig file name
	ErrEmptyTSConfigName = errors.New("empty tsconfig name")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidWatchSettings indicates invalid watch configuration
	ErrInvalidWatchSettings = errors.New("invalid watch settings")

	// ErrInvalidIndent indicates an out of range output indent
	ErrInvalidIndent = errors.New("invalid output indent")
)

// maxIndent caps output.indent.
const maxIndent = 8

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := ValidateMarker(cfg.Marker.Name); err != nil {
		errs = append(errs, err)
	}

	if err := validateProject(&cfg.Project); err != nil {
		errs = append(errs, err)
	}

	if cfg.Cache.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_files must be positive, got %d", ErrInvalidCacheSettings, cfg.Cache.MaxFiles))
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidWatchSettings, cfg.Watch.DebounceMS))
	}

	if cfg.Output.Indent < 0 || cfg.Output.Indent > maxIndent {
		errs = append(errs, fmt.Errorf("%w: indent must be between 0 and %d, got %d", ErrInvalidIndent, maxIndent, cfg.Output.Indent))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// ValidateMarker checks that name is a valid TypeScript identifier.
func ValidateMarker(name string) error {
	if name == "" {
		return fmt.Errorf("%w: marker name is required", ErrInvalidMarker)
	}

	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return fmt.Errorf("%w: %q is not an identifier", ErrInvalidMarker, name)
		}
	}

	return nil
}

func validateProject(cfg *ProjectConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.TSConfigName) == "" {
		errs = append(errs, fmt.Errorf("%w: tsconfig_name is required", ErrEmptyTSConfigName))
	}

	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("%w: %q must start with '.'", ErrInvalidExtension, ext))
		}
	}

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every input stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
