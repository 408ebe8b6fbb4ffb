package bookmark

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLastBareURL(t *testing.T) {
	content := "first https://a.example/x then [done](https://b.example) and https://c.example/page?q=1 end"
	m, ok := LastBareURL(content)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.URL != "https://c.example/page?q=1" {
		t.Errorf("url = %q", m.URL)
	}
	if content[m.Offset:m.Offset+len(m.URL)] != m.URL {
		t.Errorf("offset %d does not point at url", m.Offset)
	}
}

func TestLastBareURL_OnlyLinks(t *testing.T) {
	if m, ok := LastBareURL("[x](https://a.example) and no more"); ok {
		t.Errorf("unexpected match %+v", m)
	}
}

func TestApply(t *testing.T) {
	content := "see https://go.dev now"
	m, _ := LastBareURL(content)
	got := Apply(content, m, "The [Go] site")
	want := `see [The \[Go\] site](https://go.dev) now`
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApply_StaleMatch(t *testing.T) {
	m := Match{URL: "https://go.dev", Offset: 4}
	if got := Apply("changed text", m, "x"); got != "changed text" {
		t.Errorf("Apply on stale match = %q", got)
	}
}

func TestHTTPEnricher_Titles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Plain</title><meta property="og:title" content=" Open   Graph "></head></html>`)
	})
	mux.HandleFunc("/title", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>\n  Just a title\n</title></head><body></body></html>")
	})
	mux.HandleFunc("/none", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<p>no head</p>")
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEnricher(Options{Timeout: 2 * time.Second})
	ctx := context.Background()

	for path, want := range map[string]string{
		"/og":    "Open Graph",
		"/title": "Just a title",
		"/none":  "127.0.0.1",
	} {
		got, err := e.Label(ctx, srv.URL+path)
		if err != nil {
			t.Errorf("%s: %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("%s: label = %q, want %q", path, got, want)
		}
	}

	if _, err := e.Label(ctx, srv.URL+"/json"); err != ErrNotHTML {
		t.Errorf("json page: err = %v, want ErrNotHTML", err)
	}
	if _, err := e.Label(ctx, srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestHTTPEnricher_CachesAndSetsUserAgent(t *testing.T) {
	var hits atomic.Int32
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		agent.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<title>Cached</title>")
	}))
	defer srv.Close()

	e := NewHTTPEnricher(Options{UserAgent: "now-test"})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if label, err := e.Label(context.Background(), srv.URL); err != nil || label != "Cached" {
				t.Errorf("label = %q, err = %v", label, err)
			}
		}()
	}
	wg.Wait()
	if _, err := e.Label(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}

	if n := hits.Load(); n < 1 || n > 5 {
		t.Errorf("hits = %d", n)
	}
	before := hits.Load()
	_, _ = e.Label(context.Background(), srv.URL)
	if hits.Load() != before {
		t.Error("cached label triggered a request")
	}
	if agent.Load() != "now-test" {
		t.Errorf("user agent = %v", agent.Load())
	}
}

func TestHTTPEnricher_RejectsNonHTTP(t *testing.T) {
	e := NewHTTPEnricher(Options{})
	if _, err := e.Label(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("expected error for file url")
	}
}

func TestHTTPEnricher_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>Shared</title></head></html>")
	}))
	defer srv.Close()

	e := NewHTTPEnricher(Options{Timeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		label string
		err   error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)
	go func() {
		label, err := e.Label(ctx, srv.URL)
		first <- result{label, err}
	}()
	<-started
	go func() {
		label, err := e.Label(context.Background(), srv.URL)
		second <- result{label, err}
	}()

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for name, ch := range map[string]chan result{"first": first, "second": second} {
		select {
		case r := <-ch:
			if r.err != nil || r.label != "Shared" {
				t.Errorf("%s caller: label = %q, err = %v", name, r.label, r.err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s caller did not return", name)
		}
	}
}
