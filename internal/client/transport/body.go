package transport

import (
	"bytes"
	"io"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/google/uuid"
)

// prepare clones req with a request id and a body that can be sent twice.
func prepare(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if r.Header.Get(common.RequestIDHeaderName) == "" {
		r.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return r, nil
	}

	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	r.ContentLength = int64(len(buf))
	return r, nil
}

// rewind returns a copy of a prepared request ready to be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
