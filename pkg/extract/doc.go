// Package extract pulls structured YAML or JSON blocks out of model output
// and decodes them into typed values, with a single bounded repair round trip.
package extract
