// Package archive implements the tsar container format and its Ed25519
// signatures.
//
// An archive is laid out as follows, with all integers big-endian:
//
//	magic          "TSAR\r\n\x1a\n"          8 bytes
//	version        uint16                    2 bytes
//	role count     uint16                    2 bytes
//	roles          uint16 length + bytes     per role
//	payload size   uint64                    8 bytes
//	payload digest uint8 length + string     e.g. "sha256:<hex>"
//	signature      Ed25519                   64 bytes
//	payload        payload size bytes
//
// The manifest bytes are the fields from version through payload digest. The
// signature covers the manifest bytes followed by the payload.
//
// Decode performs structural parsing only. Payload bytes are reachable
// exclusively through a *Verified value, which Verify returns after the
// signature and payload digest have been checked. Code that extracts or runs
// an archive should accept *Verified so that the ordering is enforced by the
// type system.
package archive
