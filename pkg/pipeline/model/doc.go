// Package model provides the data structures shared by the pipeline package and its features.
// It defines the description of registered stages and the hook interface pipeline options implement.
package model
