package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/config"
)

func newTestRuntime(t *testing.T, policy simpleupload.MediaPolicy) *config.Runtime {
	t.Helper()
	cfg, err := config.Load(config.WithDatabaseURL("memory"), config.WithStorageURL("file://"+t.TempDir()))
	require.NoError(t, err)

	rt, err := cfg.Build(context.Background(), policy, nil)
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := NewRouter(newTestRuntime(t, simpleupload.ImagePolicy()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "simpleupload_http_requests_total")
}

func TestRouter_PDFUploadAndReconcile(t *testing.T) {
	router := NewRouter(newTestRuntime(t, simpleupload.PDFPolicy()))
	pdf := []byte("%PDF-1.4\n% test document\n")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, uploadRequest(t, "pdf", "doc.pdf", "application/pdf", pdf))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created struct {
		Message string               `json:"message"`
		Record  *simpleupload.Record `json:"record"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotNil(t, created.Record)
	assert.Equal(t, "PDF uploaded and saved successfully!", created.Message)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pdf/"+created.Record.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pdf, rr.Body.Bytes())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, created.Record.FilePath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pdf, rr.Body.Bytes())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var report simpleupload.ReconcileReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, "pdf", report.Variant)
	assert.Equal(t, 1, report.FilesChecked)
	assert.Equal(t, 1, report.RecordsChecked)
	assert.Empty(t, report.OrphanedFiles)
	assert.Empty(t, report.DanglingRecords)
}

func TestRouter_ImageRejectsPDF(t *testing.T) {
	router := NewRouter(newTestRuntime(t, simpleupload.ImagePolicy()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, uploadRequest(t, "image", "doc.pdf", "application/pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
