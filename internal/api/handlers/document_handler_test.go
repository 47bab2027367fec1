package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	appMiddleware "campusassist/internal/api/middlewares"
	"campusassist/internal/config"
	"campusassist/internal/core"
	"campusassist/internal/core/extract"
	"campusassist/internal/core/ingestion"
	"campusassist/internal/core/memstore"
	"campusassist/internal/models"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeObjectClient struct {
	objects map[string][]byte
	deleted []string
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{objects: make(map[string][]byte)}
}

func (f *fakeObjectClient) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	f.objects[key] = data
	return "https://" + bucket + "/" + key, nil
}

func (f *fakeObjectClient) DeleteFile(_ context.Context, _, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectClient) GetObjectReader(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var _ core.ObjectClient = (*fakeObjectClient)(nil)

func newDocumentRouter(store *memstore.Store, obj core.ObjectClient) http.Handler {
	cfg := &config.Config{BucketName: "campus-archive"}
	pipe := ingestion.NewPipeline(store, staticEmbedder{}, 1000, 200, 2000)
	h := NewDocumentHandler(store, obj, extract.NewDocconvExtractor(false), pipe, cfg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(appMiddleware.WithIdentity(req.Context(), "admin-1", "admin")))
		})
	})
	r.Post("/documents/upload", h.UploadDocument)
	r.Get("/documents/{id}/file", h.DownloadDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	return r
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadArchivesAndDeleteRemovesObject(t *testing.T) {
	store := memstore.New()
	obj := newFakeObjectClient()
	router := newDocumentRouter(store, obj)

	fileData := []byte("The registrar office handles transcript requests. Visit room 101.")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "registrar.txt", "text/plain", fileData))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	if len(obj.objects) != 1 {
		t.Fatalf("expected 1 archived object, got %d", len(obj.objects))
	}
	var key string
	for k := range obj.objects {
		key = k
	}
	if !strings.HasSuffix(key, "/registrar.txt") {
		t.Fatalf("archive key %q should end in the file name", key)
	}

	var doc models.Document
	found := false
	for _, d := range store.AllDocuments() {
		if d.SourceFileKey == key {
			doc = d
			found = true
		}
	}
	if !found {
		t.Fatal("stored document does not reference the archive key")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/documents/"+doc.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", rec.Code, rec.Body.String())
	}
	if len(obj.deleted) != 1 || obj.deleted[0] != key {
		t.Fatalf("archived object not removed with the document: %v", obj.deleted)
	}
}

func TestDownloadStreamsArchivedFile(t *testing.T) {
	store := memstore.New()
	obj := newFakeObjectClient()
	router := newDocumentRouter(store, obj)

	fileData := []byte("Semester registration closes on the first Friday of September.")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "deadlines.txt", "text/plain", fileData))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}

	docs := store.AllDocuments()
	if len(docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(docs))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/"+docs[0].ID+"/file", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), fileData) {
		t.Fatal("downloaded bytes differ from the uploaded file")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "deadlines.txt") {
		t.Fatalf("Content-Disposition %q missing file name", cd)
	}
}

func TestDownloadWithoutArchiveIs404(t *testing.T) {
	store := memstore.New()
	router := newDocumentRouter(store, newFakeObjectClient())

	if err := store.CreateDocument(context.Background(), &models.Document{
		ID: "plain", Title: "Plain", Content: "typed in by hand", Visible: true,
	}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/plain/file", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}
