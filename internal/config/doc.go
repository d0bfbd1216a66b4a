// Package config loads the ttml2srt configuration file.
//
// Two formats are accepted:
//
//   - YAML (.yaml, .yml), parsed with gopkg.in/yaml.v3
//   - JSON with comments (.json, .jsonc), stripped with
//     github.com/tidwall/jsonc and parsed with encoding/json
//
// Keys absent from the file keep their defaults, so an empty file is a
// valid configuration. Command-line flags are applied on top by the cli
// package.
package config
