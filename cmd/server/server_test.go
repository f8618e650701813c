package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func setupTestInstance(t *testing.T) (*TupleDB.Instance, *ps.Persistence) {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	_, err = persistence.WriteFileDirect(ps.DefaultSchemaFile,
		[]byte("Students(sid:Integer, name:String, gpa:Double)\n"), testIdentity, "define")
	require.NoError(t, err)

	instance, err := TupleDB.Open(persistence)
	require.NoError(t, err)
	return instance, persistence
}

func setupTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	instance, _ := setupTestInstance(t)
	server := NewServer(instance, testIdentity, opts...)
	require.NoError(t, server.Start("127.0.0.1:0")) // :0 picks a free port
	t.Cleanup(func() { server.Stop() })
	return server
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) Response {
	c.t.Helper()

	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	data, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)

	var resp Response
	require.NoError(c.t, json.Unmarshal([]byte(data), &resp))
	return resp
}

func sendQuery(t *testing.T, addr, query string) Response {
	t.Helper()
	return dial(t, addr).send(query)
}

func queryResult(t *testing.T, resp Response) QueryResponse {
	t.Helper()
	require.True(t, resp.Success, resp.Error)
	require.Equal(t, "query", resp.Type)

	var qr QueryResponse
	require.NoError(t, json.Unmarshal(resp.Result, &qr))
	return qr
}

func commitResult(t *testing.T, resp Response) CommitResponse {
	t.Helper()
	require.True(t, resp.Success, resp.Error)
	require.Equal(t, "commit", resp.Type)

	var cr CommitResponse
	require.NoError(t, json.Unmarshal(resp.Result, &cr))
	return cr
}

func TestServerStartStop(t *testing.T) {
	server := setupTestServer(t)
	assert.NotEmpty(t, server.Addr())
	assert.False(t, server.TLSEnabled())
}

func TestServerStopTwice(t *testing.T) {
	server := setupTestServer(t)
	client := dial(t, server.Addr())
	require.True(t, client.send("SELECT * FROM Students").Success)

	require.NoError(t, server.Stop())
	assert.NotPanics(t, func() { server.Stop() })

	require.NoError(t, client.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := client.reader.ReadString('\n')
	assert.Error(t, err)
}

func TestServerInsertAndSelect(t *testing.T) {
	server := setupTestServer(t)
	client := dial(t, server.Addr())

	cr := commitResult(t, client.send("INSERT INTO Students (sid, name, gpa) VALUES (1, 'Ann Lee', 3.5)"))
	assert.Equal(t, 1, cr.RecordsWritten)
	assert.Equal(t, "Students", cr.Table)
	assert.Len(t, cr.Transaction, 40)

	commitResult(t, client.send("INSERT INTO Students (sid, name, gpa) VALUES (2, Bo, 2.9)"))

	qr := queryResult(t, client.send("SELECT name, sid FROM Students WHERE gpa > 3.0"))
	assert.Equal(t, []string{"name", "sid"}, qr.Columns)
	assert.Equal(t, [][]string{{"Ann Lee", "1"}}, qr.Data)
	assert.Equal(t, 1, qr.RecordsRead)

	cr = commitResult(t, client.send("DELETE FROM Students WHERE gpa < 3.0;"))
	assert.Equal(t, 1, cr.RecordsDeleted)
}

func TestServerQueryErrors(t *testing.T) {
	server := setupTestServer(t)
	client := dial(t, server.Addr())

	tests := []struct {
		query string
		err   error
	}{
		{"SELECT age FROM Students", core.ErrAttributeNotFound},
		{"SELECT * FROM Teachers", core.ErrTableNotFound},
		{"INSERT INTO Students (sid, name) VALUES (1)", core.ErrArityMismatch},
		{"DELETE FROM Students WHERE sid = one", core.ErrTypeConversion},
		{"SHOW TABLES", core.ErrUnrecognizedQuery},
	}

	for _, tt := range tests {
		resp := client.send(tt.query)
		assert.False(t, resp.Success, tt.query)
		assert.Contains(t, resp.Error, tt.err.Error(), tt.query)
	}
}

func TestServerJSONRequest(t *testing.T) {
	server := setupTestServer(t)
	client := dial(t, server.Addr())

	commitResult(t, client.send(`{"query": "INSERT INTO Students (sid) VALUES (7)"}`))
	qr := queryResult(t, client.send(`{"query": "SELECT sid FROM Students"}`))
	assert.Equal(t, [][]string{{"7"}}, qr.Data)

	resp := client.send(`{"query": `)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid request")
}

func TestServerSkipsEmptyLines(t *testing.T) {
	server := setupTestServer(t)
	client := dial(t, server.Addr())

	_, err := client.conn.Write([]byte("\n   \n" + `{"query": ""}` + "\n"))
	require.NoError(t, err)

	qr := queryResult(t, client.send("SELECT * FROM Students"))
	assert.Equal(t, 0, qr.RecordsRead)
}

func TestServerQuit(t *testing.T) {
	server := setupTestServer(t)

	for _, command := range []string{"quit", "EXIT"} {
		client := dial(t, server.Addr())
		_, err := client.conn.Write([]byte(command + "\n"))
		require.NoError(t, err)

		require.NoError(t, client.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, err = client.reader.ReadString('\n')
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	server := setupTestServer(t)

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(sid int) {
			defer wg.Done()

			conn, err := net.DialTimeout("tcp", server.Addr(), 2*time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()

			fmt.Fprintf(conn, "INSERT INTO Students (sid) VALUES (%d)\n", sid)
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				errs <- err
				return
			}
			var resp Response
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				errs <- err
				return
			}
			if !resp.Success {
				errs <- fmt.Errorf("insert %d: %s", sid, resp.Error)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	qr := queryResult(t, sendQuery(t, server.Addr(), "SELECT sid FROM Students"))
	assert.Equal(t, clients, qr.RecordsRead)
}

func TestIdentityInCommitsUnauthenticated(t *testing.T) {
	instance, persistence := setupTestInstance(t)
	defaultIdentity := core.Identity{Name: "Default User", Email: "default@test.com"}

	server := NewServer(instance, defaultIdentity)
	require.NoError(t, server.Start("127.0.0.1:0"))
	defer server.Stop()

	commitResult(t, sendQuery(t, server.Addr(), "INSERT INTO Students (sid) VALUES (1)"))
	assert.Equal(t, "Default User <default@test.com>", persistence.LatestTransaction().Author)
}

// === Auth Tests ===

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupAuthTestServer(t *testing.T, authConfig *AuthConfig) (*Server, *ps.Persistence, *fakeClock) {
	t.Helper()

	instance, persistence := setupTestInstance(t)
	clock := &fakeClock{now: time.Now()}

	authConfig.Enabled = true
	server := NewServer(instance, testIdentity, WithAuth(authConfig))
	server.now = clock.Now
	require.NoError(t, server.Start("127.0.0.1:0"))
	t.Cleanup(func() { server.Stop() })

	return server, persistence, clock
}

func createTestJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}

func userClaims(name, email string) jwt.MapClaims {
	return jwt.MapClaims{"name": name, "email": email}
}

func TestAuthRequired(t *testing.T) {
	server, _, _ := setupAuthTestServer(t, &AuthConfig{JWTSecret: "test-secret"})

	resp := sendQuery(t, server.Addr(), "SELECT * FROM Students")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "authentication required")
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, persistence, _ := setupAuthTestServer(t, &AuthConfig{JWTSecret: secret})
	client := dial(t, server.Addr())

	resp := client.send("AUTH JWT " + createTestJWT(t, secret, userClaims("Test User", "test@example.com")))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "auth", resp.Type)

	var authResp AuthResponse
	require.NoError(t, json.Unmarshal(resp.Result, &authResp))
	assert.True(t, authResp.Authenticated)
	assert.Equal(t, "Test User <test@example.com>", authResp.Identity)
	assert.Greater(t, authResp.ExpiresIn, 0)
	assert.Len(t, authResp.ConnectionId, 36)

	commitResult(t, client.send("INSERT INTO Students (sid) VALUES (1)"))
	assert.Equal(t, "Test User <test@example.com>", persistence.LatestTransaction().Author)
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, _, _ := setupAuthTestServer(t, &AuthConfig{JWTSecret: "test-secret", Issuer: "tupledb", Audience: "students"})

	tests := []struct {
		name   string
		line   string
		errMsg string
	}{
		{"wrong secret", "AUTH JWT " + createTestJWT(t, "wrong-secret", userClaims("A", "a@example.com")), "invalid token"},
		{"wrong issuer", "AUTH JWT " + createTestJWT(t, "test-secret", jwt.MapClaims{"name": "A", "iss": "other", "aud": "students"}), "invalid token"},
		{"wrong audience", "AUTH JWT " + createTestJWT(t, "test-secret", jwt.MapClaims{"name": "A", "iss": "tupledb", "aud": "teachers"}), "invalid token"},
		{"expired", "AUTH JWT " + createTestJWT(t, "test-secret", jwt.MapClaims{"name": "A", "iss": "tupledb", "aud": "students", "exp": time.Now().Add(-time.Hour).Unix()}), "invalid token"},
		{"no identity", "AUTH JWT " + createTestJWT(t, "test-secret", jwt.MapClaims{"iss": "tupledb", "aud": "students"}), "missing identity claims"},
		{"garbage", "AUTH JWT not-a-token", "invalid token"},
		{"missing token", "AUTH JWT", "expected AUTH <type> <credentials>"},
		{"unsupported type", "AUTH BASIC dXNlcg==", "unsupported auth type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dial(t, server.Addr())
			resp := client.send(tt.line)
			assert.False(t, resp.Success)
			assert.Equal(t, "auth", resp.Type)
			assert.Contains(t, resp.Error, tt.errMsg)

			resp = client.send("SELECT * FROM Students")
			assert.Contains(t, resp.Error, "authentication required")
		})
	}

	client := dial(t, server.Addr())
	resp := client.send("AUTH JWT " + createTestJWT(t, "test-secret", jwt.MapClaims{"name": "A", "iss": "tupledb", "aud": "students"}))
	assert.True(t, resp.Success, resp.Error)
}

func TestAuthMaxAge(t *testing.T) {
	secret := "test-secret"
	server, _, clock := setupAuthTestServer(t, &AuthConfig{JWTSecret: secret, MaxAge: time.Minute})
	client := dial(t, server.Addr())

	resp := client.send("AUTH JWT " + createTestJWT(t, secret, userClaims("Test User", "test@example.com")))
	require.True(t, resp.Success, resp.Error)

	var authResp AuthResponse
	require.NoError(t, json.Unmarshal(resp.Result, &authResp))
	assert.Equal(t, 60, authResp.ExpiresIn)

	queryResult(t, client.send("SELECT * FROM Students"))

	clock.Advance(2 * time.Minute)
	resp = client.send("SELECT * FROM Students")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "token expired")

	resp = client.send("SELECT * FROM Students")
	assert.Contains(t, resp.Error, "authentication required")
}

func TestParseAuthCommand(t *testing.T) {
	authType, token, err := parseAuthCommand("auth jwt abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "JWT", authType)
	assert.Equal(t, "abc.def.ghi", token)

	_, _, err = parseAuthCommand("SELECT * FROM Students")
	require.Error(t, err)

	_, _, err = parseAuthCommand("AUTH JWT a b")
	require.Error(t, err)
}

// === TLS Tests ===

func setupTLSTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "cert.pem")
	keyFile := filepath.Join(tmpDir, "key.pem")
	generateTestCertificate(t, certFile, keyFile)

	instance, _ := setupTestInstance(t)
	server := NewServer(instance, testIdentity)
	require.NoError(t, server.StartTLS("127.0.0.1:0", certFile, keyFile))
	t.Cleanup(func() { server.Stop() })

	return server, certFile
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	require.NoError(t, os.WriteFile(certFile, certPEM, 0600))

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
}

func TestTLSServerConnection(t *testing.T) {
	server, certFile := setupTLSTestServer(t)
	assert.True(t, server.TLSEnabled())

	certPool := x509.NewCertPool()
	certData, err := os.ReadFile(certFile)
	require.NoError(t, err)
	certPool.AppendCertsFromPEM(certData)

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	})
	require.NoError(t, err)
	defer conn.Close()

	client := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	commitResult(t, client.send("INSERT INTO Students (sid) VALUES (1)"))
}

func TestTLSServerInvalidCert(t *testing.T) {
	server, _ := setupTLSTestServer(t)

	_, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{
		ServerName: "localhost",
	})
	assert.Error(t, err)
}

func TestStartTLSMissingCertificate(t *testing.T) {
	instance, _ := setupTestInstance(t)
	server := NewServer(instance, testIdentity)

	err := server.StartTLS("127.0.0.1:0", "missing.pem", "missing.key")
	assert.ErrorContains(t, err, "failed to load TLS certificate")
}

// === Flags ===

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tupledb.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: 0.0.0.0:4000\n  auth:\n    enabled: true\n    jwt_secret: s\n"), 0600))

	opts, flags, err := parseFlags([]string{"-c", configPath, "--data-dir", "data"})
	require.NoError(t, err)
	cfg, err := loadConfig(opts, flags)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:4000", cfg.Server.Addr)
	assert.Equal(t, "data", cfg.DataDir)

	authConfig := authConfigFrom(cfg.Server.Auth)
	require.NotNil(t, authConfig)
	assert.Equal(t, "s", authConfig.JWTSecret)

	opts, flags, err = parseFlags([]string{"--addr", ":5000", "--tls-cert", "cert.pem"})
	require.NoError(t, err)
	_, err = loadConfig(opts, flags)
	assert.ErrorContains(t, err, "tls_key")

	_, _, err = parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)
}
