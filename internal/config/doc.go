// Package config loads and validates petal.json.
//
// The file is plain JSON with string durations ("30s", "250ms").
// Unset fields fall back to defaults, so an empty object is a valid
// configuration apart from the template path.
package config
