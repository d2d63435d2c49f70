package core

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type memSource struct {
	name    string
	data    []byte
	openErr error
}

func (m memSource) Name() string { return m.name }

func (m memSource) Open() (io.ReadCloser, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func src(name, data string) Source {
	return memSource{name: name, data: []byte(data)}
}

func names(files []Source) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name()
	}
	return out
}

type memSink struct {
	mu      sync.Mutex
	reports map[string][]byte
	err     error
}

func newMemSink() *memSink {
	return &memSink{reports: make(map[string][]byte)}
}

func (m *memSink) StoreReport(_ context.Context, sessionID, fileName string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := sessionID + "/" + fileName
	m.reports[ref] = body
	return ref, nil
}
