package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/cache"
	"github.com/JMAlloway/Check-sub001/internal/config"
	"github.com/JMAlloway/Check-sub001/internal/gateway"
	"github.com/JMAlloway/Check-sub001/internal/health"
	"github.com/JMAlloway/Check-sub001/internal/imaging"
	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/registry"
	"github.com/JMAlloway/Check-sub001/internal/resolver"
	"github.com/JMAlloway/Check-sub001/internal/storage"
	"github.com/JMAlloway/Check-sub001/internal/token"
)

const (
	serverConnectorID = "conn-1"
	serverAdminKey    = "test-admin-key"
)

type nullSink struct{}

func (nullSink) Append(context.Context, model.AuditRecord) error { return nil }

type serverFixture struct {
	server *Server
	priv   *rsa.PrivateKey
	dir    string
}

// newServerFixture composes the whole gateway against in-memory stores and
// a temp-dir storage tree, exactly as the daemon wires it against postgres.
func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	store := registry.NewMemoryStore()
	reg := registry.New(store, zerolog.Nop())
	_, err = reg.Register(context.Background(), serverConnectorID, "", "key-1", pubPEM,
		time.Now().AddDate(1, 0, 0), 120)
	require.NoError(t, err)

	dir := t.TempDir()
	res := resolver.New(resolver.NewMemoryIndex(), resolver.NewAllowlist([]string{dir}))
	c := cache.New(time.Minute)
	t.Cleanup(c.Stop)

	auditor := audit.NewLogger(zerolog.Nop(), nullSink{}, 8)
	t.Cleanup(auditor.Close)

	svc := gateway.NewService(zerolog.Nop(), res, storage.NewFilesystemProvider(dir),
		imaging.NewDecoder(0), c, 5*time.Second)

	monitor := health.NewMonitor(zerolog.Nop(), serverConnectorID, store, []health.Probe{
		{Name: "storage", Check: func(context.Context) error { return nil }},
	}, time.Minute, 3, 6)
	monitor.ProbeAll(context.Background())

	cfg := &config.Config{
		ConnectorID: serverConnectorID,
		AdminAPIKey: serverAdminKey,
		Mode:        "demo",
	}

	srv := NewServer(zerolog.Nop(), cfg, Deps{
		Gateway:   svc,
		Validator: token.NewValidator(reg),
		Registry:  reg,
		Monitor:   monitor,
		Cache:     c,
		Auditor:   auditor,
	})
	return &serverFixture{server: srv, priv: priv, dir: dir}
}

func (f *serverFixture) mintToken(t *testing.T) string {
	t.Helper()
	claims := token.Claims{
		TenantID: "tenant-9",
		UserID:   "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{serverConnectorID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(120 * time.Second)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.priv)
	require.NoError(t, err)
	return raw
}

func (f *serverFixture) writePNG(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestServer_Healthz(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
		Mode   string `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "demo", body.Mode)
}

func TestServer_Metrics(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ImageEndpointRequiresToken(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/images/by-handle?path=x&side=front", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ImageByHandleEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	path := f.writePNG(t, "front.png")

	q := url.Values{"path": {path}, "side": {"front"}}
	r := httptest.NewRequest(http.MethodGet, "/v1/images/by-handle?"+q.Encode(), nil)
	r.Header.Set("Authorization", "Bearer "+f.mintToken(t))
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestServer_AdminRequiresKey(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/connectors/"+serverConnectorID, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_AdminGetConnector(t *testing.T) {
	f := newServerFixture(t)
	r := httptest.NewRequest(http.MethodGet, "/admin/v1/connectors/"+serverConnectorID, nil)
	r.Header.Set("X-Admin-Key", serverAdminKey)
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var c model.Connector
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, serverConnectorID, c.ID)
}

func TestServer_CorrelationIDEchoed(t *testing.T) {
	f := newServerFixture(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()

	f.server.ServeHTTP(rec, r)

	assert.Equal(t, "corr-123", rec.Header().Get("X-Correlation-ID"))
}
