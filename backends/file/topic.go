package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// Topic publishes Messages as files in a directory.
type Topic struct {
	DirName string
}

// NewWriter returns a MessageWriter.
// The MessageWriter may be used to write a single message file.
func (t *Topic) NewWriter(context.Context) msg.MessageWriter {
	return &MessageWriter{
		dir:        t.DirName,
		attributes: make(msg.Attributes),
	}
}

// MessageWriter is used to publish a single Message to a directory.
// Once all of the data has been written and closed, it may not be used again.
type MessageWriter struct {
	dir string

	attributes msg.Attributes
	buf        bytes.Buffer // internal buffer
	closed     bool
	mux        sync.Mutex
}

// Attributes returns the attributes of the MessageWriter.
func (w *MessageWriter) Attributes() *msg.Attributes {
	return &w.attributes
}

// Close writes the message to a hidden temporary file, then renames it so
// a Server never sees a partial message.
// If the MessageWriter is already closed it will return an error.
func (w *MessageWriter) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return msg.ErrClosedMessageWriter
	}
	w.closed = true

	f, err := os.CreateTemp(w.dir, ".msg-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := WriteMessage(f, w.attributes, &w.buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	name := strings.TrimPrefix(filepath.Base(tmp), ".")
	return os.Rename(tmp, filepath.Join(w.dir, name))
}

// Write writes bytes to an internal buffer.
func (w *MessageWriter) Write(p []byte) (int, error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return 0, msg.ErrClosedMessageWriter
	}
	return w.buf.Write(p)
}
