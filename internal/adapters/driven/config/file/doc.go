// Package file keeps topicseek state on local disk: config.toml settings
// with environment overrides, editable summary prompts, and the
// build_info.json manifest of every store.
package file
