// Package msg defines the message, receiver and topic abstractions shared
// by the transports and decorators of this module.
package msg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"sort"
)

// Attributes is the header block of a Message. Keys are canonicalized the
// way MIME headers are, so "message-id" and "Message-Id" are the same key
// when accessed through the methods below.
type Attributes map[string][]string

// Clone returns a deep copy of a. The clone of a nil Attributes is empty,
// not nil.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, vv := range a {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// Get returns the first value of key, or "" if there is none.
func (a Attributes) Get(key string) string {
	return textproto.MIMEHeader(a).Get(key)
}

// Values returns every value of key. The slice is never nil.
func (a Attributes) Values(key string) []string {
	if vv := textproto.MIMEHeader(a).Values(key); vv != nil {
		return vv
	}
	return []string{}
}

// Set replaces the values of key with value.
func (a Attributes) Set(key, value string) {
	textproto.MIMEHeader(a).Set(key, value)
}

// Keys returns the keys of a in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Message is one message of a messaging system: its attributes and a
// body read at most once.
type Message struct {
	Attributes Attributes
	Body       io.Reader
}

// WithBody returns a Message reading from r which carries a copy of the
// attributes of parent.
func WithBody(parent *Message, r io.Reader) *Message {
	return &Message{
		Attributes: parent.Attributes.Clone(),
		Body:       r,
	}
}

// DumpBody drains m.Body and returns its bytes. m.Body is replaced by a
// reader over the same bytes so it can still be consumed afterwards.
// A nil Body dumps as no bytes.
func DumpBody(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	if m.Body != nil {
		if _, err := buf.ReadFrom(m.Body); err != nil {
			return nil, err
		}
	}
	m.Body = &buf
	return buf.Bytes(), nil
}

// CloneBody is DumpBody returning an independent reader instead of bytes.
func CloneBody(m *Message) (io.Reader, error) {
	b, err := DumpBody(m)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// Receiver handles messages delivered by a Server.
//
// A nil error acknowledges the message. On error the Server treats the
// message as unprocessed and redelivers it if the transport allows. The
// Body must not be read once Receive has returned.
type Receiver interface {
	Receive(context.Context, *Message) error
}

// ReceiverFunc lets an ordinary function act as a Receiver.
type ReceiverFunc func(context.Context, *Message) error

// Receive calls f(ctx, m).
func (f ReceiverFunc) Receive(ctx context.Context, m *Message) error {
	return f(ctx, m)
}

// ErrServerClosed is returned by Serve once the Server stops listening.
var ErrServerClosed = errors.New("msg: server closed")

// Server feeds the messages of one input to a Receiver.
type Server interface {
	// Serve blocks, passing each message to the Receiver with a context
	// owned by the Server. It returns ErrServerClosed when it stops
	// because of Shutdown; any other error is specific to the transport.
	Serve(Receiver) error

	// Shutdown stops Serve from taking new messages and waits for the
	// messages in flight. When ctx ends first, the in-flight receivers
	// see their context cancelled and ctx's error is returned.
	Shutdown(context.Context) error
}

// ErrClosedMessageWriter is returned by Write and Close on a
// MessageWriter that has already been closed.
var ErrClosedMessageWriter = errors.New("msg: MessageWriter closed")

// MessageWriter builds one outgoing message.
//
// Write appends to the body. Close publishes the message, or hands it to
// the next MessageWriter when decorated; decorators set the attributes
// describing their transformation at that point. A MessageWriter is
// single-use: after Close, both Write and Close fail with
// ErrClosedMessageWriter.
type MessageWriter interface {
	io.Writer
	io.Closer
	Attributes() *Attributes
}

// Topic is a destination messages are published to. It is safe for
// concurrent use.
type Topic interface {
	// NewWriter returns a MessageWriter for one message. ctx carries
	// request-scoped values, such as the active span, to decorators.
	NewWriter(context.Context) MessageWriter
}

// TopicFunc lets an ordinary function act as a Topic.
type TopicFunc func(context.Context) MessageWriter

// NewWriter calls f(ctx).
func (f TopicFunc) NewWriter(ctx context.Context) MessageWriter {
	return f(ctx)
}
