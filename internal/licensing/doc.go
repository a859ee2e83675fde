// Package licensing holds the pure pieces of license validation: validation
// outcomes, the version gate, the kill switch and key fingerprints. Nothing in
// here touches the store or the network.
package licensing
