// Package domain holds the types topicseek is built around: transcript
// segments and units, chunks with time bounds, store manifests, build
// reports and ranked search results. It also owns the pure helpers that
// need no I/O, such as timestamp links, script detection and cosine
// similarity.
//
// domain imports only the standard library. Every other package may
// depend on it; it depends on none of them.
package domain
