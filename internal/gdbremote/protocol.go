package gdbremote

import "fmt"

// response is one tokenized reply from the peer: a success frame carrying
// payload, a negative acknowledgment, or a single unrecognised byte.
type response struct {
	success bool
	negAck  bool
	payload []byte // valid when success
	unknown byte   // valid when neither success nor negAck
}

// tokenize consumes as many complete messages as it can from buf and
// returns them along with the unconsumed remainder, which the caller must
// retain and prepend to the next read so partial packets survive until
// completion.
func tokenize(buf []byte) ([]response, []byte) {
	var msgs []response
	remaining := buf

	for len(remaining) > 0 {
		switch remaining[0] {
		case '+':
			hashIndex := indexByte(remaining, '#')
			if len(remaining) >= 2 && remaining[1] == '$' && hashIndex != -1 && len(remaining) >= hashIndex+3 {
				payload := make([]byte, hashIndex-2)
				copy(payload, remaining[2:hashIndex])
				msgs = append(msgs, response{success: true, payload: payload})
				remaining = remaining[hashIndex+3:]
				continue
			}
			// Not yet complete; wait for more data.
			return msgs, remaining
		case '-':
			msgs = append(msgs, response{negAck: true})
			remaining = remaining[1:]
		default:
			msgs = append(msgs, response{unknown: remaining[0]})
			remaining = remaining[1:]
		}
	}
	return msgs, remaining
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// checksum is the 8-bit sum of the payload bytes, as required by the
// outgoing frame format.
func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// frame renders an outgoing command as "+$<payload>#XX".
func frame(command string) []byte {
	payload := []byte(command)
	return []byte(fmt.Sprintf("+$%s#%02x", payload, checksum(payload)))
}
