package common

// WipeByteArray overwrites b with zeros. It is used to drop passwords from
// memory once they have been sent to the identity provider.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
