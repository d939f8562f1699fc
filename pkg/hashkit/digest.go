package hashkit

import (
	"crypto/md5"
	"crypto/sha1"

	"github.com/cespare/xxhash/v2"
)

// MD5 computes the MD5 digest over data[start : start+length]. Used only
// for display/identity purposes, never for security decisions.
func MD5(data []byte, start, length int) [16]byte {
	end := start + length
	return md5.Sum(data[start:end])
}

// SHA1 computes the SHA-1 digest over data[start : start+length]. Used only
// for display/identity purposes, never for security decisions.
func SHA1(data []byte, start, length int) [20]byte {
	end := start + length
	return sha1.Sum(data[start:end])
}

// XXHash64 computes a fast, non-cryptographic 64-bit digest over
// data[start : start+length]. It backs the ROM-detection signature cache in
// pkg/patcher and is not part of any wire-format checksum.
func XXHash64(data []byte, start, length int) uint64 {
	end := start + length
	return xxhash.Sum64(data[start:end])
}
