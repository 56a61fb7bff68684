package wsock

import "time"

// readLine reads up to and including a '\r', then requires the following
// byte to be '\n'. It fails with KindProto if that byte isn't '\n', or if
// any byte in the line falls outside the printable ASCII range 0x20-0x7F.
// The returned string is normalized: leading/trailing whitespace trimmed,
// and each interior run of whitespace collapsed to a single space. An empty
// normalized line (the blank line terminating an HTTP header block) is a
// valid, non-error result.
//
// Deadline and transport errors from the underlying reader propagate
// unchanged.
func readLine(t *transport, deadline time.Time) (string, error) {
	if err := t.setReadDeadline(deadline); err != nil {
		return "", err
	}

	raw, err := t.br.ReadString('\r')
	if err != nil {
		return "", err
	}
	nl, err := t.br.ReadByte()
	if err != nil {
		return "", err
	}
	if nl != '\n' {
		return "", newErr("readLine", KindProto, nil)
	}

	line := raw[:len(raw)-1] // drop the trailing '\r'
	for i := 0; i < len(line); i++ {
		if line[i] < 0x20 || line[i] > 0x7f {
			return "", newErr("readLine", KindProto, nil)
		}
	}

	return normalizeWhitespace(line), nil
}

// normalizeWhitespace trims leading/trailing space and tab characters and
// collapses each interior run of them to a single 0x20 space.
func normalizeWhitespace(s string) string {
	out := make([]byte, 0, len(s))
	inRun := false
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	for i := start; i < end; i++ {
		c := s[i]
		if isSpaceByte(c) {
			if !inRun {
				out = append(out, ' ')
				inRun = true
			}
			continue
		}
		inRun = false
		out = append(out, c)
	}
	return string(out)
}

func isSpaceByte(c byte) bool { return c == ' ' || c == '\t' }
