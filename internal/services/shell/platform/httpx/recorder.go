package httpx

import "net/http"

// ResponseRecorder tracks what a handler wrote through a ResponseWriter.
type ResponseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

// NewResponseRecorder wraps w. An existing recorder is returned unchanged so
// nested middleware share one view of the response.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	if rec, ok := w.(*ResponseRecorder); ok {
		return rec
	}
	return &ResponseRecorder{ResponseWriter: w}
}

// WriteHeader records the status before delegating.
func (r *ResponseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Write records the implicit 200 and the payload size.
func (r *ResponseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Flush forwards to the wrapped writer when it supports flushing.
func (r *ResponseRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		if !r.wroteHeader {
			r.WriteHeader(http.StatusOK)
		}
		flusher.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Written reports whether the status line has been sent.
func (r *ResponseRecorder) Written() bool {
	return r.wroteHeader
}

// Status returns the written status, or 0 when nothing was written.
func (r *ResponseRecorder) Status() int {
	return r.status
}

// Bytes returns the number of body bytes written.
func (r *ResponseRecorder) Bytes() int {
	return r.bytes
}
