// Package file implements a msg.Topic and msg.Server on top of a
// directory, one message per file.
//
// A message file holds the attributes as a MIME header block, one
// "Key: value" line per value, then an empty line and the body:
//
//	Message-Id: 1
//	Traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
//	hello world
//
// Since trace context travels in the attributes, the tracing decorators
// work across processes sharing the directory.
package file
