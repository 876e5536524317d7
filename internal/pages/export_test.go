package pages

// TrimPage is the real single-page trim step.
var TrimPage = trimPage

// SetTrim replaces the single-page trim step and returns a func restoring it.
func SetTrim(fn func(data []byte, pageNr int, validation string) ([]byte, error)) (restore func()) {
	prev := trim
	trim = fn
	return func() { trim = prev }
}
