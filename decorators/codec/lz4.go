package codec

import (
	"context"
	"sync"

	"github.com/pierrec/lz4/v4"
	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// ContentEncodingLZ4 is the Content-Encoding value of lz4 compressed bodies.
const ContentEncodingLZ4 = "lz4"

// LZ4Encoder wraps a topic with another which lz4-encodes a Message.
// This should used in conjunction with the base64 encoder
// if the underlying message queue does not support binary (eg SQS)
func LZ4Encoder(next msg.Topic) msg.Topic {
	options := []lz4.Option{
		lz4.CompressionLevelOption(lz4.Level3),
	}

	return msg.TopicFunc(func(ctx context.Context) msg.MessageWriter {
		nextW := next.NewWriter(ctx)
		writer := lz4.NewWriter(nextW)
		if err := writer.Apply(options...); err != nil {
			panic(err)
		}
		return &lz4Writer{
			Next:   nextW,
			Writer: writer,
		}
	})
}

type lz4Writer struct {
	Next msg.MessageWriter

	Writer *lz4.Writer
	closed bool
	mux    sync.Mutex
}

// Attributes returns the attributes associated with the MessageWriter.
func (w *lz4Writer) Attributes() *msg.Attributes {
	return w.Next.Attributes()
}

// Close flushes the lz4 frame before closing the next MessageWriter.
func (w *lz4Writer) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return msg.ErrClosedMessageWriter
	}
	w.closed = true

	w.Attributes().Set(contentEncoding, ContentEncodingLZ4)

	if err := w.Writer.Close(); err != nil {
		return err
	}
	return w.Next.Close()
}

// Write compresses b into the next MessageWriter.
func (w *lz4Writer) Write(b []byte) (int, error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return 0, msg.ErrClosedMessageWriter
	}
	return w.Writer.Write(b)
}
