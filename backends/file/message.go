package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	msg "github.com/zerofox-oss/go-msg-wrappers"
)

// ErrInvalidAttribute is returned when an attribute would not read back
// unchanged from a message file header.
var ErrInvalidAttribute = errors.New("file: attribute cannot be stored")

// WriteMessage writes attrs and body to w in the message file format.
func WriteMessage(w io.Writer, attrs msg.Attributes, body io.Reader) error {
	bw := bufio.NewWriter(w)
	for _, key := range attrs.Keys() {
		for _, v := range attrs[key] {
			if !validAttribute(key, v) {
				return fmt.Errorf("%w: %q", ErrInvalidAttribute, key)
			}
			fmt.Fprintf(bw, "%s: %s\r\n", key, v)
		}
	}
	bw.WriteString("\r\n")

	if _, err := io.Copy(bw, body); err != nil {
		return err
	}
	return bw.Flush()
}

// validAttribute reports whether the header line "key: value" parses back
// to key and value. Header parsing trims spaces and tabs around values, so
// values starting or ending with one are rejected along with line breaks.
func validAttribute(key, value string) bool {
	if key == "" || strings.ContainsAny(key, "\r\n: \t") {
		return false
	}
	if strings.ContainsAny(value, "\r\n") {
		return false
	}
	return strings.Trim(value, " \t") == value
}

// ReadMessage parses a message file. The returned Message reads its
// body from r.
func ReadMessage(r io.Reader) (*msg.Message, error) {
	br := bufio.NewReader(r)
	header, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("file: reading attributes: %w", err)
	}
	return &msg.Message{
		Attributes: msg.Attributes(header),
		Body:       br,
	}, nil
}
