// Package validation provides centralized input validation for degbrowser.
package validation

import (
	"fmt"
	"strings"

	"github.com/seqtools/degbrowser/internal/errors"
)

// =============================================================================
// Category Validation
// =============================================================================

// Categories lists the recognized dataset categories, in scan order.
var Categories = []string{"primary", "secondary"}

// ValidateCategory checks that cat names a known results subdirectory.
func ValidateCategory(cat string) error {
	for _, c := range Categories {
		if cat == c {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (want primary or secondary)", errors.ErrInvalidCategory, cat)
}

// =============================================================================
// Dataset ID Validation
// =============================================================================

// ValidateDatasetID checks a dataset identifier of the form "category/stem".
// The stem is the TSV filename without extension. Path traversal characters
// are rejected so IDs can be mapped back to files safely.
func ValidateDatasetID(id string) error {
	cat, stem, ok := strings.Cut(id, "/")
	if !ok {
		return fmt.Errorf("%w: %q (want category/name)", errors.ErrInvalidDatasetID, id)
	}
	if err := ValidateCategory(cat); err != nil {
		return err
	}
	return validateStem(stem)
}

func validateStem(stem string) error {
	if stem == "" {
		return fmt.Errorf("%w: empty name", errors.ErrInvalidDatasetID)
	}
	if len(stem) > 255 {
		return fmt.Errorf("%w: name too long", errors.ErrInvalidDatasetID)
	}
	if stem == "." || stem == ".." {
		return fmt.Errorf("%w: name cannot be '.' or '..'", errors.ErrInvalidDatasetID)
	}
	if strings.ContainsAny(stem, "/\\") {
		return fmt.Errorf("%w: name contains path separator", errors.ErrInvalidDatasetID)
	}
	if strings.HasPrefix(stem, ".") {
		return fmt.Errorf("%w: name cannot start with '.'", errors.ErrInvalidDatasetID)
	}
	for _, r := range stem {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case '-', '_', '.', ' ':
			continue
		}
		return fmt.Errorf("%w: name contains %q", errors.ErrInvalidDatasetID, r)
	}
	return nil
}

// =============================================================================
// Threshold Validation
// =============================================================================

// ValidateFDR checks an FDR / p-value cutoff. Must lie in (0, 1].
func ValidateFDR(fdr float64) error {
	if fdr <= 0 || fdr > 1 {
		return fmt.Errorf("%w: fdr %g not in (0, 1]", errors.ErrInvalidThreshold, fdr)
	}
	return nil
}

// ValidateLFC checks an absolute log2 fold-change cutoff. Must be >= 0.
func ValidateLFC(lfc float64) error {
	if lfc < 0 {
		return fmt.Errorf("%w: lfc %g is negative", errors.ErrInvalidThreshold, lfc)
	}
	return nil
}

// =============================================================================
// Network Validation
// =============================================================================

// ValidatePort checks a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d not in [1, 65535]", errors.ErrInvalidPort, port)
	}
	return nil
}
