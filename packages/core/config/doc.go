// Package config handles configuration loading and management for hitcall.
//
// It provides functionality for:
//   - Loading configuration from hitcall.yaml / hitcall.json files
//   - Default request configuration values
//   - The named-client store that request resolution reads from
//   - Deep merging of generic configuration trees
package config
