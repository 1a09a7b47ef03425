// Package textutil provides small text helpers shared across the pipeline,
// chiefly sanitizing dealer and stock identifiers for safe use in asset
// directory names and object storage keys.
package textutil
