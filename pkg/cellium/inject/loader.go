package inject

import (
	"log/slog"
)

// LoadPolicy decides how a cell construction failure is handled.
type LoadPolicy int

const (
	// Strict aborts startup on the first construction failure.
	Strict LoadPolicy = iota

	// Lenient logs and skips failed cells; the kernel keeps running
	// with the remaining cells.
	Lenient
)

// String returns the policy name.
func (p LoadPolicy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// Load constructs the configured cells in order, registers each, and
// wires its declared event handlers to the bus. Cells already constructed
// through a cross-cell reference are skipped. The registry is sealed once
// loading completes, successful or not.
func (in *Injector) Load(ids []string, policy LoadPolicy) error {
	defer in.cells.Seal()

	for _, id := range ids {
		if in.cells.Has(id) {
			// Pulled in earlier as a dependency of another cell.
			continue
		}

		if _, err := in.construct(id); err != nil {
			if policy == Strict {
				return err
			}
			in.logger.Warn("skipping cell",
				slog.String("cell", id),
				slog.String("policy", policy.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	in.logger.Info("cells loaded",
		slog.Int("count", in.cells.Len()),
		slog.String("policy", policy.String()),
	)
	return nil
}
