package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/store"
	"github.com/logbookone/logbook/internal/types"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// startServer runs a bridge over a fresh store on a random port.
func startServer(t *testing.T, maxBytes int64) (*Server, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	engine := portability.New(db, portability.WithLogger(quietLogger()))
	server := NewServer(engine, &Config{
		Addr:           "127.0.0.1:0",
		MaxUploadBytes: maxBytes,
		Stats:          db,
		Logger:         quietLogger(),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server, db
}

// dial connects a WebSocket client and consumes the welcome message.
func dial(t *testing.T, ctx context.Context, server *Server) (*websocket.Conn, Message) {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, readMessage(t, ctx, conn)
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func exportPayload(t *testing.T, f interchange.Format, clients int) []byte {
	t.Helper()
	ds := &types.Dataset{ExportedAt: time.Now()}
	for i := 0; i < clients; i++ {
		ds.Clients = append(ds.Clients, types.Client{ID: uuid.New(), Name: "Client"})
	}
	data, err := interchange.Encode(ds, f)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	return data
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(nil, &Config{Addr: "127.0.0.1:0", Logger: quietLogger()})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if addr := server.Addr(); addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %q, want bound address", addr)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocket_WelcomeStats(t *testing.T) {
	server, db := startServer(t, 0)
	if err := db.AddClient(&types.Client{Name: "Acme"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, welcome := dial(t, ctx, server)
	if welcome.Type != MessageTypeStats {
		t.Fatalf("welcome type = %s, want %s", welcome.Type, MessageTypeStats)
	}
	var st store.Stats
	if err := json.Unmarshal(welcome.Data, &st); err != nil {
		t.Fatalf("Failed to unmarshal stats: %v", err)
	}
	if st.Clients != 1 {
		t.Errorf("welcome stats clients = %d, want 1", st.Clients)
	}
	if n := server.Subscribers(); n != 1 {
		t.Errorf("Subscribers() = %d, want 1", n)
	}
}

func TestImportThenExport_Broadcasts(t *testing.T) {
	server, db := startServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _ := dial(t, ctx, server)

	base := "http://" + server.Addr()
	resp, err := http.Post(base+"/import?format=csv", "text/plain", bytes.NewReader(exportPayload(t, interchange.FormatCSV, 2)))
	if err != nil {
		t.Fatalf("POST /import failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST /import status = %d: %s", resp.StatusCode, body)
	}
	var summary types.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.Clients.Imported != 2 {
		t.Errorf("summary.Clients.Imported = %d, want 2", summary.Clients.Imported)
	}

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeImportComplete {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeImportComplete)
	}
	var imported ImportCompleteData
	if err := json.Unmarshal(msg.Data, &imported); err != nil {
		t.Fatal(err)
	}
	if imported.Format != "csv" || imported.Summary.Clients.Imported != 2 {
		t.Errorf("import data = %+v", imported)
	}

	resp, err = http.Get(base + "/export?format=json")
	if err != nil {
		t.Fatalf("GET /export failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "logbook-export-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	decoded, err := interchange.Decode(body, interchange.FormatJSON, nil)
	if err != nil {
		t.Fatalf("exported body does not decode: %v", err)
	}
	if len(decoded.Clients) != 2 {
		t.Errorf("exported %d clients, want 2", len(decoded.Clients))
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeExportComplete {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeExportComplete)
	}

	if n, _ := db.ClientCount(); n != 2 {
		t.Errorf("ClientCount() = %d, want 2", n)
	}
}

func TestImport_Failures(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		body        []byte
		wantStatus  int
		broadcast   bool
	}{
		{"not an export", "/import?format=csv", "text/csv", []byte("a,b\n1,2\n"), http.StatusUnprocessableEntity, true},
		{"broken json", "/import", "application/json", []byte(`{"clients":`), http.StatusUnprocessableEntity, true},
		{"unknown format", "/import?format=xml", "", []byte("<x/>"), http.StatusBadRequest, false},
		{"no format at all", "/import", "", []byte("{}"), http.StatusBadRequest, false},
		{"too large", "/import?filename=big.json", "", bytes.Repeat([]byte(" "), 256), http.StatusRequestEntityTooLarge, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, db := startServer(t, 128)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conn, _ := dial(t, ctx, server)

			req, err := http.NewRequest(http.MethodPost, "http://"+server.Addr()+tt.url, bytes.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var failed OperationFailedData
			if err := json.NewDecoder(resp.Body).Decode(&failed); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if failed.Operation != portability.OpImport || failed.Message == "" {
				t.Errorf("error body = %+v", failed)
			}

			if tt.broadcast {
				msg := readMessage(t, ctx, conn)
				if msg.Type != MessageTypeOperationFailed {
					t.Errorf("message type = %s, want %s", msg.Type, MessageTypeOperationFailed)
				}
			}
			if n, _ := db.ClientCount(); n != 0 {
				t.Errorf("ClientCount() = %d after failed import", n)
			}
		})
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	server, _ := startServer(t, 0)

	resp, err := http.Get("http://" + server.Addr() + "/export?format=pdf")
	if err != nil {
		t.Fatalf("GET /export failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server, _ := startServer(t, 0)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var health struct {
		Status      string       `json:"status"`
		Subscribers int          `json:"subscribers"`
		Store       *store.Stats `json:"store"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Store == nil {
		t.Errorf("health = %+v", health)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrOperationInProgress, http.StatusConflict},
		{types.ErrUnknownFormat, http.StatusBadRequest},
		{types.ErrFormat, http.StatusUnprocessableEntity},
		{types.ErrNotRecognizedFormat, http.StatusUnprocessableEntity},
		{types.ErrAccess, http.StatusBadRequest},
		{types.ErrStorageCommit, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// slowStore delays snapshots so overlapping exports really overlap.
type slowStore struct {
	*store.DB
}

func (s slowStore) Snapshot(ctx context.Context) (*types.Dataset, error) {
	time.Sleep(50 * time.Millisecond)
	return s.DB.Snapshot(ctx)
}

func TestExport_ConcurrentRequestsQueue(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	engine := portability.New(slowStore{db}, portability.WithLogger(quietLogger()))
	server := NewServer(engine, &Config{Addr: "127.0.0.1:0", Logger: quietLogger()})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	const requests = 3
	codes := make(chan int, requests)
	for i := 0; i < requests; i++ {
		go func() {
			resp, err := http.Get("http://" + server.Addr() + "/export?format=csv")
			if err != nil {
				codes <- 0
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}

	for i := 0; i < requests; i++ {
		if code := <-codes; code != http.StatusOK {
			t.Errorf("export status = %d, want %d", code, http.StatusOK)
		}
	}
}
