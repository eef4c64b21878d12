package gdbremote

import "testing"

func TestFrameChecksum(t *testing.T) {
	got := string(frame("g"))
	want := "+$g#67" // 'g' = 0x67, single-byte payload checksum is itself
	if got != want {
		t.Errorf("frame(%q) = %q, want %q", "g", got, want)
	}
}

func TestChecksumSumsBytes(t *testing.T) {
	if got := checksum([]byte("OK")); got != 'O'+'K' {
		t.Errorf("checksum(OK) = %d, want %d", got, 'O'+'K')
	}
}

func TestTokenizeSuccessFrame(t *testing.T) {
	buf := []byte("+$OK#9a")
	msgs, remaining := tokenize(buf)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !msgs[0].success || string(msgs[0].payload) != "OK" {
		t.Errorf("msg = %+v, want success payload OK", msgs[0])
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %q, want empty", remaining)
	}
}

func TestTokenizeNegativeAck(t *testing.T) {
	msgs, remaining := tokenize([]byte("-"))
	if len(msgs) != 1 || !msgs[0].negAck {
		t.Fatalf("msgs = %+v, want a single negAck", msgs)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %q, want empty", remaining)
	}
}

func TestTokenizeUnknownByte(t *testing.T) {
	msgs, _ := tokenize([]byte{0x03})
	if len(msgs) != 1 || msgs[0].success || msgs[0].negAck || msgs[0].unknown != 0x03 {
		t.Fatalf("msgs = %+v, want a single unknown byte 0x03", msgs)
	}
}

func TestTokenizeRetainsPartialFrame(t *testing.T) {
	buf := []byte("+$OK")
	msgs, remaining := tokenize(buf)
	if len(msgs) != 0 {
		t.Fatalf("got %d messages from a partial frame, want 0", len(msgs))
	}
	if string(remaining) != "+$OK" {
		t.Errorf("remaining = %q, want the whole partial frame retained", remaining)
	}
}

func TestTokenizeMultipleMessagesInOneBuffer(t *testing.T) {
	buf := append([]byte("+$OK#9a"), '-')
	buf = append(buf, 0x03)
	msgs, remaining := tokenize(buf)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if !msgs[0].success || !msgs[1].negAck || msgs[2].unknown != 0x03 {
		t.Errorf("msgs = %+v", msgs)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %q, want empty", remaining)
	}
}

func TestTokenizeCompleteThenPartial(t *testing.T) {
	buf := []byte("+$OK#9a+$more")
	msgs, remaining := tokenize(buf)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 complete plus a retained partial", len(msgs))
	}
	if string(remaining) != "+$more" {
		t.Errorf("remaining = %q, want %q", remaining, "+$more")
	}
}
