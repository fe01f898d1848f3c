package upload

import (
	"bytes"
	"context"
	"io"
	"os"
)

type mockHTTPClient struct {
	data      []byte
	err       error
	unsafeErr error
	lastURL   string
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.lastURL = url
	return m.data, m.err
}

func (m *mockHTTPClient) IsSafeURL(urlStr string) (bool, error) {
	if m.unsafeErr != nil {
		return false, m.unsafeErr
	}
	return true, nil
}

// mockInputReader はメモリ上のオブジェクトを返す remoteio.InputReader です。
type mockInputReader struct {
	objects map[string][]byte
}

func (m *mockInputReader) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	data, ok := m.objects[filePath]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockInputReader) List(ctx context.Context, path string, callback func(filePath string) error) error {
	for p := range m.objects {
		if err := callback(p); err != nil {
			return err
		}
	}
	return nil
}
