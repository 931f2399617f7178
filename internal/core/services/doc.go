// Package services holds the indexing and retrieval logic behind the
// driving ports: incremental builds, embedding batches, ranked search,
// summaries and settings. It talks to the outside world only through
// the driven port interfaces.
package services
