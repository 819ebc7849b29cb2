package link

// MaxLineLen is the longest line the reader accumulates.
const MaxLineLen = 255

// LineReader splits a byte stream into lines terminated by '\n' or '\r'.
//
// When a line grows past MaxLineLen the accumulation is dropped together with
// the byte that overflowed it, and reading continues from the next byte. The
// tail of an oversized message is therefore seen as a fresh line.
// TODO: resynchronize by skipping to the next terminator once the peer app
// is confirmed not to rely on the current behaviour.
type LineReader struct {
	buf      [MaxLineLen]byte
	n        int
	overflow int
}

// Feed consumes one byte. It returns a completed non-empty line when b is a terminator.
func (r *LineReader) Feed(b byte) (string, bool) {
	if b == '\n' || b == '\r' {
		if r.n == 0 {
			return "", false
		}
		line := string(r.buf[:r.n])
		r.n = 0
		return line, true
	}
	if r.n < MaxLineLen {
		r.buf[r.n] = b
		r.n++
		return "", false
	}
	r.n = 0
	r.overflow++
	return "", false
}

// Pending returns the number of bytes accumulated for the current line.
func (r *LineReader) Pending() int {
	return r.n
}

// Overflows returns how many lines were dropped for exceeding MaxLineLen.
func (r *LineReader) Overflows() int {
	return r.overflow
}
