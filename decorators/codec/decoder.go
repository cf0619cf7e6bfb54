package codec

import (
	"context"
	"encoding/base64"

	"github.com/pierrec/lz4/v4"
	msg "github.com/zerofox-oss/go-msg-wrappers"
)

const (
	contentEncoding         = "Content-Encoding"
	contentTransferEncoding = "Content-Transfer-Encoding"
)

// Decoder wraps a msg.Receiver, decoding the Message.Body according to
// its attributes: base64 first when Content-Transfer-Encoding is base64,
// then lz4 when Content-Encoding is lz4. Other messages are passed
// through untouched.
func Decoder(next msg.Receiver) msg.Receiver {
	return msg.ReceiverFunc(func(ctx context.Context, m *msg.Message) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if isBase64Encoded(m) {
			m.Body = base64.NewDecoder(base64.StdEncoding, m.Body)
		}
		if isLZ4Compressed(m) {
			m.Body = lz4.NewReader(m.Body)
		}
		return next.Receive(ctx, m)
	})
}

// isBase64Encoded returns true if Content-Transfer-Encoding is set to
// "base64" in the passed Message's Attributes.
//
// Note: MIMEHeader.Get() is used to fetch this value. In the case of a list of
// values, .Get() returns the 0th value.
func isBase64Encoded(m *msg.Message) bool {
	return m.Attributes.Get(contentTransferEncoding) == TransferEncodingBase64
}

// isLZ4Compressed returns true if Content-Encoding is set to "lz4".
func isLZ4Compressed(m *msg.Message) bool {
	return m.Attributes.Get(contentEncoding) == ContentEncodingLZ4
}
