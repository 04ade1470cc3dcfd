package events

// SSE framing. All event types share the single generic "message" event name
// so browser EventSource consumers need only one onmessage handler; comment
// frames carry the connected sentinel and keep-alives.

const (
	// CommentConnected is sent once, immediately after a subscription is
	// registered, so clients can tell "subscribed" from "still negotiating".
	CommentConnected = "connected"

	// CommentPing is the periodic keep-alive that defeats idle-connection
	// timeouts in intermediary proxies.
	CommentPing = "ping"
)

// DataFrame wraps one encoded event in an SSE data frame.
func DataFrame(encoded []byte) []byte {
	frame := make([]byte, 0, len(encoded)+24)
	frame = append(frame, "event: message\ndata: "...)
	frame = append(frame, encoded...)
	frame = append(frame, "\n\n"...)
	return frame
}

// CommentFrame wraps a comment in an SSE comment-only frame (no event/data).
func CommentFrame(comment string) []byte {
	frame := make([]byte, 0, len(comment)+4)
	frame = append(frame, ": "...)
	frame = append(frame, comment...)
	frame = append(frame, "\n\n"...)
	return frame
}
