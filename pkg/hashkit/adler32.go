package hashkit

// adlerMod is the Adler-32 modulus, 65521 (the largest prime smaller than
// 2^16), written as 0xfff1 to match the source's constant form.
const adlerMod = 0xfff1

// Adler32 computes the Adler-32 checksum over data[start : start+length].
func Adler32(data []byte, start, length int) uint32 {
	end := start + length
	a, b := uint32(1), uint32(0)
	for _, c := range data[start:end] {
		a = (a + uint32(c)) % adlerMod
		b = (b + a) % adlerMod
	}
	return (b << 16) | a
}
