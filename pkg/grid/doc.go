// Package grid bootstraps the feature-composition core of a grid instance.
//
// Initialize builds a Handle in a fixed order: the handle itself, the diagnostics
// channel, the state store seeded from the configuration, the pre-processing
// pipeline, the row grouping stages and finally the locale text. Every component
// receives the same Handle and features reach each other only through it.
//
//	h, err := grid.Initialize(nil, cfg)
//	if err != nil {
//		return err
//	}
//	defer h.Dispose()
//
//	tree, err := h.RowTree(ctx)
//
// A failing step aborts the remaining ones. The failure is reported through the
// diagnostics channel and returned as a *BootstrapError.
package grid
