package embedding

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

// gradientPNG returns a PNG with a horizontal gradient, optionally mirrored.
func gradientPNG(mirror bool) []byte {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for x := range 64 {
		v := uint8(x * 4)
		if mirror {
			v = 255 - v
		}
		for y := range 64 {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func newEmbeddingServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPProvider_Embed(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"dim":3,"embedding":[0.1,0.2,0.3],"model":"clip","pretrained":"openai"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL+"/", 0)
	vec, err := p.Embed(context.Background(), encodePNG(createTestImage(20, 20, color.White)))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if gotPath != "/embed/image" {
		t.Errorf("path = %s; want /embed/image", gotPath)
	}
	if len(vec) != 3 || vec[0] != 0.1 || vec[2] != 0.3 {
		t.Errorf("unexpected embedding %v", vec)
	}
	if got := p.ModelKey(); got != "http:clip/openai@3" {
		t.Errorf("ModelKey() = %q; want http:clip/openai@3", got)
	}
}

func TestHTTPProvider_EmbedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"bad request", http.StatusBadRequest, `{"error":"bad image"}`},
		{"invalid json", http.StatusOK, `not json`},
		{"empty embedding", http.StatusOK, `{"dim":0,"embedding":[]}`},
		{"dim mismatch", http.StatusOK, `{"dim":4,"embedding":[1,2]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newEmbeddingServer(t, tc.status, tc.body)
			p := NewHTTPProvider(server.URL, 0)

			_, err := p.Embed(context.Background(), encodePNG(createTestImage(10, 10, color.Black)))
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("Embed() error = %v; want ErrExtractionFailed", err)
			}
		})
	}
}

func TestHTTPProvider_EmbedUndecodableImage(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, 0).Embed(context.Background(), []byte("corrupt"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Embed() error = %v; want ErrExtractionFailed", err)
	}
	if called {
		t.Error("corrupt image should not reach the server")
	}
}

func TestHTTPProvider_Confidence(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{"valid", `{"label":"cat","confidence":0.82}`, 0.82, false},
		{"out of range", `{"label":"cat","confidence":1.5}`, 0, true},
		{"invalid json", `{`, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newEmbeddingServer(t, http.StatusOK, tc.body)
			got, err := NewHTTPProvider(server.URL, 0).Confidence(context.Background(), encodePNG(createTestImage(10, 10, color.White)))
			if (err != nil) != tc.wantErr {
				t.Fatalf("Confidence() error = %v; wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Confidence() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestPerceptualProvider_Embed(t *testing.T) {
	p := NewPerceptualProvider()
	data := gradientPNG(false)

	vec, err := p.Embed(context.Background(), data)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != PerceptualDim {
		t.Fatalf("len = %d; want %d", len(vec), PerceptualDim)
	}
	for i, v := range vec {
		if v != 1 && v != -1 {
			t.Fatalf("component %d = %v; want +1 or -1", i, v)
		}
	}

	again, err := p.Embed(context.Background(), data)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for i := range vec {
		if vec[i] != again[i] {
			t.Fatal("embedding is not deterministic")
		}
	}

	mirrored, err := p.Embed(context.Background(), gradientPNG(true))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	same := true
	for i := range vec {
		if vec[i] != mirrored[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different images produced identical embeddings")
	}
}

func TestPerceptualProvider_InvalidImage(t *testing.T) {
	_, err := NewPerceptualProvider().Embed(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Embed() error = %v; want ErrExtractionFailed", err)
	}
}

func TestPerceptualProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPerceptualProvider().Embed(ctx, gradientPNG(false))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Embed() error = %v; want context.Canceled", err)
	}
}

func TestAppendBits(t *testing.T) {
	vec := appendBits(nil, 1<<63|1)
	if len(vec) != 64 {
		t.Fatalf("len = %d; want 64", len(vec))
	}
	if vec[0] != 1 || vec[63] != 1 || vec[1] != -1 {
		t.Errorf("unexpected bits: first=%v second=%v last=%v", vec[0], vec[1], vec[63])
	}
}

type fakeProvider struct {
	calls int
	vec   []float32
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(context.Context, []byte) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	getErr  error
	saveErr error
}

func (m *memoryCache) GetEmbedding(_ context.Context, hash, model string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[model+"/"+hash]
	return v, ok, nil
}

func (m *memoryCache) SaveEmbedding(_ context.Context, hash, model string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.entries == nil {
		m.entries = make(map[string][]float32)
	}
	m.entries[model+"/"+hash] = vec
	return nil
}

func TestCachedProvider(t *testing.T) {
	inner := &fakeProvider{vec: []float32{1, 2}}
	cache := &memoryCache{}
	p := NewCachedProvider(inner, cache, nil)

	for range 3 {
		vec, err := p.Embed(context.Background(), []byte("image"))
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 2 {
			t.Fatalf("unexpected embedding %v", vec)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times; want 1", inner.calls)
	}
	if p.Name() != "fake" {
		t.Errorf("Name() = %s; want fake", p.Name())
	}
}

func TestCachedProvider_CacheFailuresAreIgnored(t *testing.T) {
	inner := &fakeProvider{vec: []float32{1}}
	cache := &memoryCache{getErr: errors.New("down"), saveErr: errors.New("down")}
	p := NewCachedProvider(inner, cache, nil)

	if _, err := p.Embed(context.Background(), []byte("image")); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times; want 1", inner.calls)
	}
}

func TestCachedProvider_InnerErrorNotCached(t *testing.T) {
	inner := &fakeProvider{err: ErrExtractionFailed}
	cache := &memoryCache{}
	p := NewCachedProvider(inner, cache, nil)

	if _, err := p.Embed(context.Background(), []byte("image")); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Embed() error = %v; want ErrExtractionFailed", err)
	}
	if len(cache.entries) != 0 {
		t.Error("failed embedding should not be cached")
	}
}

// switchableServer serves embeddings of a model that the test can change.
type switchableServer struct {
	mu    sync.Mutex
	body  string
	calls int
}

func (s *switchableServer) set(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func (s *switchableServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	w.Write([]byte(s.body))
}

func TestCachedProvider_ModelSwitch(t *testing.T) {
	backend := &switchableServer{body: `{"dim":3,"embedding":[1,0,0],"model":"clip","pretrained":"a"}`}
	server := httptest.NewServer(backend)
	defer server.Close()

	cache := &memoryCache{}
	img := encodePNG(createTestImage(20, 20, color.White))
	ctx := context.Background()

	first := NewCachedProvider(NewHTTPProvider(server.URL, 0), cache, nil)
	for range 2 {
		vec, err := first.Embed(ctx, img)
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 3 {
			t.Fatalf("dim = %d; want 3", len(vec))
		}
	}
	if backend.calls != 1 {
		t.Fatalf("server called %d times; want 1", backend.calls)
	}

	backend.set(`{"dim":5,"embedding":[1,0,0,0,0],"model":"clip","pretrained":"b"}`)

	second := NewCachedProvider(NewHTTPProvider(server.URL, 0), cache, nil)
	for range 2 {
		vec, err := second.Embed(ctx, img)
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 5 {
			t.Fatalf("dim = %d after model switch; want 5", len(vec))
		}
	}
	if backend.calls != 2 {
		t.Errorf("server called %d times; want 2", backend.calls)
	}
	if len(cache.entries) != 2 {
		t.Errorf("cache holds %d entries; want one per model", len(cache.entries))
	}
	if got := second.ModelKey(); got != "http:clip/b@5" {
		t.Errorf("ModelKey() = %q; want http:clip/b@5", got)
	}
}

func TestCachedProvider_DropsStaleDimension(t *testing.T) {
	stale := []byte("old image")
	cache := &memoryCache{entries: map[string][]float32{
		"fake/" + ContentHash(stale): {1, 2, 3},
	}}
	inner := &fakeProvider{vec: []float32{1, 2}}
	p := NewCachedProvider(inner, cache, nil)
	ctx := context.Background()

	if _, err := p.Embed(ctx, []byte("new image")); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	vec, err := p.Embed(ctx, stale)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("dim = %d; want 2", len(vec))
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times; want 2", inner.calls)
	}
	if got := cache.entries["fake/"+ContentHash(stale)]; len(got) != 2 {
		t.Errorf("stale entry not replaced: %v", got)
	}
}

func TestContentHash(t *testing.T) {
	// SHA-256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := ContentHash(nil); got != empty {
		t.Errorf("ContentHash(nil) = %s; want %s", got, empty)
	}
	if ContentHash([]byte("a")) == ContentHash([]byte("b")) {
		t.Error("different inputs produced the same hash")
	}
}
