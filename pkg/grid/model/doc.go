// Package model declares the passive data shapes of the grid: filter items,
// export options and the accumulator types carried by the pre-processing pipelines.
// Nothing in this package mutates state; consumers read these records.
package model
