// Package keys implements the node keys used to identify Hastings peers.
//
// Every node owns a secp256k1 key-pair. The public key, in uncompressed form
// and hex-encoded, is the node's identity on the discovery network; the 32-bit
// hash of the public key is the short ID used in RPCs and logs. The private key
// is kept in a file readable only by its owner.
package keys
