package telemetry

// Reassembler rebuilds payloads framed by a Framer. The transport
// preserves message boundaries, so an inbound message is either a whole
// JSON payload (starts with '{') or one fragment with the 4-byte header.
// Fragments arriving out of order or from a different message drop the
// partial buffer; there is no retransmission to wait for.
type Reassembler struct {
	buf    []byte
	total  int
	next   int
	length int
}

// Add consumes one inbound message. It returns the complete payload and
// true when the message was whole or completed a fragment sequence.
func (r *Reassembler) Add(msg []byte) ([]byte, bool) {
	// The whole-message branch only applies between sequences: while
	// fragments are buffered, a leading '{' byte is a sequence number
	// (123) and must go through the header path.
	if len(msg) > 0 && msg[0] == '{' && r.buf == nil {
		return msg, true
	}
	if len(msg) <= fragmentHeaderSize {
		r.reset()
		return nil, false
	}

	seq := int(msg[0])
	total := int(msg[1])
	length := int(msg[2])<<8 | int(msg[3])

	if seq == 0 {
		r.buf = make([]byte, 0, length)
		r.total = total
		r.next = 0
		r.length = length
	}
	if r.buf == nil || seq != r.next || total != r.total || length != r.length {
		r.reset()
		return nil, false
	}

	r.buf = append(r.buf, msg[fragmentHeaderSize:]...)
	r.next++

	if r.next < r.total {
		return nil, false
	}

	payload := r.buf
	r.reset()
	if len(payload) != length {
		return nil, false
	}
	return payload, true
}

func (r *Reassembler) reset() {
	r.buf = nil
	r.total = 0
	r.next = 0
	r.length = 0
}
