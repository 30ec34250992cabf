package websocket

type Message struct {
	Type int
	Data []byte
}

type Writer interface {
	WriteMessage(msg Message)
	Error(reason string)
}

type wsWriter struct {
	writer chan Message
	error  chan string
}

func (w wsWriter) WriteMessage(msg Message) {
	select {
	case w.writer <- msg:
	default:
		// Slow consumer, drop. The next full list supersedes this one.
	}
}

func (w wsWriter) Error(reason string) {
	select {
	case w.error <- reason:
	default:
	}
}
