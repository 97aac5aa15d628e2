// Package diag holds problem markers: the per-file annotations produced from
// the external tool's error records, the sink they are written to, the index
// that maps reported file names back to resources, and a persistent store.
package diag
