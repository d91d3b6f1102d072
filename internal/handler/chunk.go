package handler

import "bytes"

// ChunkJoin joins params with sep, starting a new chunk whenever
// appending the next item would exceed maxLength -- used to split a
// long NAMES/WHO reply's member list across as few 512-byte lines as
// possible instead of one line per item. Adapted from
// btnmasher-dircd/shared/stringutils.ChunkJoinStrings, generalized as
// a handler-layer helper since spec section 4.7's batch middleware is
// exactly where multi-line reply chunking belongs.
func ChunkJoin(maxLength int, sep string, params ...string) []string {
	var buffer bytes.Buffer
	currentLength := 0
	var joined []string
	nextBuffer := false

	for i := range params {
		if currentLength+len(params[i]) <= maxLength {
			buffer.WriteString(params[i])
			currentLength += len(params[i])
		} else {
			nextBuffer = true
		}

		if i+1 < len(params) && currentLength+len(sep)+len(params[i+1]) <= maxLength {
			buffer.WriteString(sep)
			currentLength += len(sep)
		} else {
			nextBuffer = true
		}

		if nextBuffer {
			currentLength = 0
			nextBuffer = false
			joined = append(joined, buffer.String())
			buffer.Reset()
		}
	}

	if buffer.Len() > 0 {
		joined = append(joined, buffer.String())
	}

	return joined
}
