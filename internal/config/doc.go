// Package config loads causeway configuration.
//
// Configuration is validated against an embedded CUE schema that also
// supplies every default, so an empty path yields a complete Config. Files
// may be written in CUE, YAML or JSON; all three are unified with the same
// schema, and unknown fields are rejected.
package config
