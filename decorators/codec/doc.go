// Package codec provides decorators which encode message bodies on the
// way out and decode them on the way in.
//
// LZ4Encoder compresses the body and sets Content-Encoding to lz4.
// Base64Encoder encodes the body for queues which do not support binary
// payloads (eg SQS) and sets Content-Transfer-Encoding to base64. Both are
// usually combined, with the lz4 encoder outermost so it runs first:
//
//	topic := codec.LZ4Encoder(codec.Base64Encoder(sqsTopic))
//
// Decoder undoes both, in reverse order, based on the message attributes.
package codec
