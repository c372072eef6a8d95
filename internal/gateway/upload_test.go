package gateway

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMultipartFields(t *testing.T) {
	var gotNames []string
	var gotBytes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload/p1", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			gotNames = append(gotNames, fh.Filename)
			gotBytes += int(fh.Size)
		}
		w.Write([]byte(`{"success":true,"files":[{"filename":"a.pdf","size":3},{"filename":"b.txt","size":2}]}`))
	}))
	defer srv.Close()

	files := []UploadFile{
		{Name: "a.pdf", Data: []byte("abc")},
		{Name: "b.txt", Data: []byte("de")},
	}
	res, err := NewClient(srv.URL).Upload(context.Background(), "p1", files, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a.pdf", "b.txt"}, gotNames)
	assert.Equal(t, 5, gotBytes)
	assert.True(t, res.Accepted("a.pdf"))
	assert.False(t, res.Accepted("c.doc"))
}

func TestUploadReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32 << 20))
		w.Write([]byte(`{"success":true,"files":[]}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var loads []int64
	var lastTotal int64
	progress := func(loaded, total int64) {
		mu.Lock()
		loads = append(loads, loaded)
		lastTotal = total
		mu.Unlock()
	}

	data := bytes.Repeat([]byte("x"), progressChunk+100)
	_, err := NewClient(srv.URL).Upload(context.Background(), "p1", []UploadFile{{Name: "big.bin", Data: data}}, progress)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, loads)
	assert.Equal(t, int64(len(data)), lastTotal)
	assert.Equal(t, int64(len(data)), loads[len(loads)-1], "final callback covers the whole payload")
	for i := 1; i < len(loads); i++ {
		assert.Greater(t, loads[i], loads[i-1], "progress is monotonic")
	}
}

func TestUploadPartialRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"files":[{"filename":"ok.pdf","size":3}],"errors":["bad.exe: file type not allowed"]}`))
	}))
	defer srv.Close()

	files := []UploadFile{
		{Name: "ok.pdf", Data: []byte("abc")},
		{Name: "bad.exe", Data: []byte("mz")},
	}
	res, err := NewClient(srv.URL).Upload(context.Background(), "p1", files, nil)
	require.NoError(t, err, "parseable rejection is a result, not an error")
	assert.False(t, res.Success)
	assert.True(t, res.Accepted("ok.pdf"))
	assert.False(t, res.Accepted("bad.exe"))
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bad.exe")
}

func TestUploadSingleFileResponseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"filename":"solo.md","size":7,"type":"md"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Upload(context.Background(), "p1", []UploadFile{{Name: "solo.md", Data: []byte("# title")}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, UploadedFile{Filename: "solo.md", Size: 7, Type: "md"}, res.Files[0])
}

func TestUploadUnparseableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), "p1", []UploadFile{{Name: "a.pdf", Data: []byte("x")}}, nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestUploadEmptyBatch(t *testing.T) {
	res, err := NewClient("http://unused").Upload(context.Background(), "p1", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Files)
}
