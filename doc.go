// Package tsar builds, verifies and runs signed, role-tagged archives.
//
// A tsar archive is a single file holding a manifest, an Ed25519 signature
// and a compressed tar payload. The signature covers the manifest bytes and
// the payload, so no byte of an archive can change without detection.
//
// [Pipeline] is the high-level entry point. It gates every use of a payload
// on a successful signature check: extraction and execution only ever see an
// [archive.Verified], which only [archive.Verify] can produce.
//
// # Quick Start
//
// Compile a directory into a signed archive:
//
//	seed, err := keys.ReadSeedFile("tsar.seed")
//	if err != nil {
//	    return err
//	}
//	p, err := tsar.New()
//	if err != nil {
//	    return err
//	}
//	res, err := p.Compile(ctx, "./src", "hello.tsar", seed, []string{"network"})
//
// Run it, granting only the roles the caller trusts it with:
//
//	p, err := tsar.New(tsar.WithGranter(grant.NewAllowList("network")))
//	if err != nil {
//	    return err
//	}
//	code, err := p.Run(ctx, "hello.tsar", pub)
//
// # Run-lists
//
// An archive may carry roles/<role>.yaml files and package directories with
// a package.yaml descriptor. See package runlist for the format.
package tsar
