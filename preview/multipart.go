// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
)

// frameWriter writes an endless MIME multipart body, one image per part.
//
// mime/multipart.Writer only closes the part when the next one starts, while
// each frame here must end with its boundary line so the client shows it
// right away.
type frameWriter struct {
	w        io.Writer
	boundary string
	started  bool
	buf      bytes.Buffer
}

// newFrameWriter picks a random boundary the same way multipart.Writer does.
func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w, boundary: multipart.NewWriter(io.Discard).Boundary()}
}

// writeFrame sends one part. header gets a Content-Length.
func (f *frameWriter) writeFrame(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.Itoa(len(body)))

	f.buf.Reset()
	if !f.started {
		fmt.Fprintf(&f.buf, "--%s\r\n", f.boundary)
		f.started = true
	}
	for name, values := range header {
		for _, value := range values {
			fmt.Fprintf(&f.buf, "%s: %s\r\n", name, value)
		}
	}
	f.buf.WriteString("\r\n")
	f.buf.Write(body)
	fmt.Fprintf(&f.buf, "\r\n--%s\r\n", f.boundary)

	_, err := f.buf.WriteTo(f.w)
	return err
}
