// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"
)

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

type request struct {
	format Format
	once   bool
}

func (s *Server) parseQuery(values url.Values) (request, error) {
	req := request{format: s.format}
	if value := values.Get("format"); value != "" {
		format, err := ParseFormat(value)
		if err != nil {
			return request{}, err
		}
		req.format = format
	}
	if value := values.Get("once"); value != "" {
		once, err := strconv.ParseBool(value)
		if err != nil {
			return request{}, err
		}
		req.once = once
	}
	return req, nil
}

// ServeHTTP handles HTTP GET requests. The response is a stream of images of
// the panel, updated on every Draw, or a single image with "?once=1". The
// "format" parameter selects PNG or JPEG ("?format=png", "?format=jpeg").
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	req, err := s.parseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.once {
		s.serveImage(w, r, req.format)
		return
	}
	s.serveStream(w, r, req.format)
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, format Format) {
	payload, err := s.snapshot(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.mimeType())
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(payload)
}

func (s *Server) serveStream(w http.ResponseWriter, r *http.Request, format Format) {
	fw := newFrameWriter(w)

	w.Header().Set("Content-Type",
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": fw.boundary,
		}))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}

	c := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	partHeaders := make(textproto.MIMEHeader)
	partHeaders.Set("Content-Type", format.mimeType())

	var keepalive <-chan time.Time
	if s.keepalive > 0 {
		t := time.NewTicker(s.keepalive)
		defer t.Stop()
		keepalive = t.C
	}

	for {
		payload, err := s.snapshot(format)
		if err != nil {
			return
		}
		// Errors terminate the stream silently; there is no way to report
		// them inside an image stream.
		if err := fw.writeFrame(partHeaders, payload); err != nil {
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		select {
		case <-c.refresh:
		case <-keepalive:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}
