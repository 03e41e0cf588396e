// Package keys derives Ed25519 signing keys from a seed and reads and writes
// the seedfile and public key text formats used on the command line.
//
// All functions are pure: seeds and keys are passed explicitly and nothing is
// cached between calls. Persisting the seed is the caller's responsibility.
//
// A seedfile is three lines of text:
//
//	---------- THIS IS YOUR PRIVATE SEED FILE ----------
//	<base64 seed (44 chars)><base64 big-endian CRC-32 of the seed (8 chars)>
//	------------- DO NOT SHARE IT PUBLICLY -------------
//
// Public keys are displayed and accepted as standard base64.
package keys
