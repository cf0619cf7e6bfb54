package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"

	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// TransferEncodingBase64 is the Content-Transfer-Encoding value of base64
// encoded bodies.
const TransferEncodingBase64 = "base64"

// Base64Encoder wraps a topic with another which base64-encodes a Message.
func Base64Encoder(next msg.Topic) msg.Topic {
	return msg.TopicFunc(func(ctx context.Context) msg.MessageWriter {
		return &base64Writer{
			Next: next.NewWriter(ctx),
		}
	})
}

type base64Writer struct {
	Next msg.MessageWriter

	buf    bytes.Buffer
	closed bool
	mux    sync.Mutex
}

// Attributes returns the attributes associated with the MessageWriter.
func (w *base64Writer) Attributes() *msg.Attributes {
	return w.Next.Attributes()
}

// Close base64-encodes the contents of the buffer before
// writing them to the next MessageWriter.
func (w *base64Writer) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return msg.ErrClosedMessageWriter
	}
	w.closed = true

	w.Attributes().Set(contentTransferEncoding, TransferEncodingBase64)

	src := w.buf.Bytes()
	buf := make([]byte, base64.StdEncoding.EncodedLen(len(src)))
	base64.StdEncoding.Encode(buf, src)

	if _, err := w.Next.Write(buf); err != nil {
		return err
	}
	return w.Next.Close()
}

// Write writes bytes to an internal buffer.
func (w *base64Writer) Write(b []byte) (int, error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return 0, msg.ErrClosedMessageWriter
	}
	return w.buf.Write(b)
}
