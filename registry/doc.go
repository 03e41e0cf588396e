// Package registry pushes and pulls tsar archives to and from OCI registries.
//
// An archive is stored as a single layer of an OCI 1.1 artifact manifest.
// The roles and payload digest from the archive manifest are copied into
// layer annotations for display; they are unsigned hints and are never used
// for trust decisions. Pulled archives must still be verified with a public
// key before use.
package registry
