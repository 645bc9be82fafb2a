package renderer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestShouldRender(t *testing.T) {
	staticContent := "<html><body>" + strings.Repeat("Static content with lots of text ", 30) + "</body></html>"
	shortContent := "<html><script>console.log('test')</script></html>"
	reactContent := "<html><body>" + strings.Repeat("padding ", 80) + "<div data-reactroot></div></body></html>"
	nextContent := "<html><body>" + strings.Repeat("padding ", 80) + `<script id="__NEXT_DATA__"></script></body></html>`

	tests := []struct {
		name         string
		html         string
		shouldRender bool
	}{
		{"short page", shortContent, true},
		{"static page", staticContent, false},
		{"react root", reactContent, true},
		{"next.js data", nextContent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ShouldRender(tt.html); result != tt.shouldRender {
				t.Errorf("ShouldRender: expected %v, got %v", tt.shouldRender, result)
			}
		})
	}
}

func TestChromeRendererNew(t *testing.T) {
	renderer := NewChromeRenderer(5*time.Second, 30*time.Second)

	if renderer.settle != 5*time.Second {
		t.Errorf("Expected settle 5s, got %v", renderer.settle)
	}
	if renderer.timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", renderer.timeout)
	}
}

func TestChromeRendererRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="app"></div>
			<script>document.getElementById("app").innerHTML = '<a href="/v/clip.mp4">clip</a>';</script>
		</body></html>`))
	}))
	defer srv.Close()

	renderer := NewChromeRenderer(200*time.Millisecond, 15*time.Second)

	html, err := renderer.Render(context.Background(), srv.URL)
	if err != nil {
		t.Logf("Failed to render page (expected in test env without Chrome): %v", err)
		return
	}

	if !strings.Contains(html, "/v/clip.mp4") {
		t.Errorf("Expected rendered markup to contain script output, got %s", html)
	}
}
