package middleware

import (
	"bytes"
	"net/http"
)

// recorder buffers a handler's response so the post-dispatch phase can decide
// whether to store it before anything reaches the client.
type recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

// Header implements http.ResponseWriter.
func (r *recorder) Header() http.Header {
	return r.header
}

// WriteHeader implements http.ResponseWriter. Only the first call counts.
func (r *recorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = statusCode
}

// Write implements http.ResponseWriter.
func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

// StatusCode returns the recorded status, 200 when the handler never wrote one.
func (r *recorder) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Bytes returns the recorded body.
func (r *recorder) Bytes() []byte {
	return r.body.Bytes()
}

// flush copies the recorded response to w unchanged.
func (r *recorder) flush(w http.ResponseWriter) error {
	copyHeader(w.Header(), r.header)
	w.WriteHeader(r.StatusCode())
	if r.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(r.body.Bytes())
	return err
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
