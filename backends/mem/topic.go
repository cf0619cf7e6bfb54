package mem

import (
	"bytes"
	"context"
	"sync"

	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// Topic publishes Messages to a channel, typically the C of a Server.
type Topic struct {
	C chan *msg.Message
}

// NewWriter returns a MessageWriter publishing one Message to t.C.
// Close gives up when ctx is done before the channel accepts the Message.
func (t *Topic) NewWriter(ctx context.Context) msg.MessageWriter {
	return &MessageWriter{
		ctx:        ctx,
		c:          t.C,
		attributes: msg.Attributes{},
	}
}

// MessageWriter buffers a single Message until Close.
type MessageWriter struct {
	ctx context.Context
	c   chan *msg.Message

	mux        sync.Mutex
	attributes msg.Attributes
	body       bytes.Buffer
	closed     bool
}

// Attributes returns the attributes of the MessageWriter.
func (w *MessageWriter) Attributes() *msg.Attributes {
	return &w.attributes
}

// Close sends the Message. The published Message owns a copy of the
// attributes, so later edits through Attributes do not reach consumers.
func (w *MessageWriter) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return msg.ErrClosedMessageWriter
	}
	w.closed = true

	m := &msg.Message{
		Attributes: w.attributes.Clone(),
		Body:       bytes.NewReader(w.body.Bytes()),
	}

	select {
	case w.c <- m:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// Write appends p to the body.
func (w *MessageWriter) Write(p []byte) (int, error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return 0, msg.ErrClosedMessageWriter
	}
	return w.body.Write(p)
}
