package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const proxyPage = `<html><body><table>
<thead><tr><th>IP Address</th><th>Port</th></tr></thead>
<tbody>
<tr><td>10.0.0.1</td><td>8080</td><td>BR</td></tr>
<tr><td>10.0.0.2</td><td>3128</td><td>US</td></tr>
<tr><td>not-an-ip</td><td>80</td></tr>
<tr><td>10.0.0.3</td><td>99999</td></tr>
</tbody></table></body></html>`

func TestValidateAndFormatProxy(t *testing.T) {
	if !ValidateProxy("127.0.0.1:8080") {
		t.Error("Expected bare host:port to be accepted")
	}
	if ValidateProxy("") {
		t.Error("Expected empty proxy to be rejected")
	}
	if ValidateProxy("ftp://host:21") {
		t.Error("Expected ftp scheme to be rejected")
	}
	if got := FormatProxy("127.0.0.1:8080"); got != "http://127.0.0.1:8080" {
		t.Errorf("Unexpected formatted proxy %s", got)
	}
}

func TestRotateProxy(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:1", "10.0.0.2:2", ""}, "")

	first, _ := pm.GetCurrentProxy()
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	pm.RotateProxy()
	third, _ := pm.GetCurrentProxy()

	if first != "http://10.0.0.1:1" || second != "http://10.0.0.2:2" || third != first {
		t.Errorf("Unexpected rotation: %s, %s, %s", first, second, third)
	}
}

func TestFixedUserAgent(t *testing.T) {
	pm := NewProxyManager(nil, "crypto-tracker/1.0")
	if ua := pm.GetUserAgent(); ua != "crypto-tracker/1.0" {
		t.Errorf("Expected fixed user agent, got %s", ua)
	}
	if pm.HasProxies() {
		t.Error("Expected no proxies")
	}
}

func TestRefreshProxiesParsesTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(proxyPage))
	}))
	defer srv.Close()

	pm := NewProxyManager(nil, "")
	pm.SetSource(srv.URL)

	n, err := pm.RefreshProxies(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 proxies, got %d", n)
	}

	current, _ := pm.GetCurrentProxy()
	if !strings.HasPrefix(current, "http://10.0.0.") {
		t.Errorf("Unexpected proxy %s", current)
	}
}

func TestRefreshProxiesEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing</body></html>"))
	}))
	defer srv.Close()

	pm := NewProxyManager(nil, "")
	pm.SetSource(srv.URL)

	if _, err := pm.RefreshProxies(context.Background()); err == nil {
		t.Error("Expected error for page without proxies")
	}
}
