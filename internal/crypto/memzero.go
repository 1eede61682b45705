package crypto

import (
	"crypto/ecdsa"
	"crypto/subtle"
	"runtime"
)

// Wipe zeroes the provided buffer. This is best-effort and aims to
// reduce the chance of the compiler eliding the write.
//
//go:noinline
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	// Ensure b is considered live until after the zeroing.
	runtime.KeepAlive(&b)
}

// wipeKey clears the scalar of priv in place.
func wipeKey(priv *ecdsa.PrivateKey) {
	if priv == nil || priv.D == nil {
		return
	}
	words := priv.D.Bits()
	for i := range words {
		words[i] = 0
	}
	priv.D.SetInt64(0)
}
