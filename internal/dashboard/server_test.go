package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	"github.com/afitree-ship-it/deentracker/internal/core"
)

func setupTestServer(t *testing.T) (*Server, *core.Core) {
	t.Helper()

	engine := core.New(nil, nil, core.Options{
		ActiveMember: "m1",
		Logger:       log.New(io.Discard, "", 0),
	})
	roster := checklist.DefaultRoster()

	srv, err := NewServer(engine, roster, &Config{
		Addr:   "127.0.0.1:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })

	return srv, engine
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestProgressEndpoint(t *testing.T) {
	srv, engine := setupTestServer(t)

	today := checklist.Today()
	if _, err := engine.Toggle(today, "m1", "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Toggle(today, "m1", "t2"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/progress")
	if err != nil {
		t.Fatalf("GET /api/progress: %v", err)
	}
	defer resp.Body.Close()

	var progress ProgressData
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}

	if progress.Date != today {
		t.Errorf("date = %s, want %s", progress.Date, today)
	}
	if len(progress.Members) != 8 {
		t.Fatalf("progress has %d members, want 8", len(progress.Members))
	}

	var m1 *MemberProgress
	for i := range progress.Members {
		if progress.Members[i].MemberID == "m1" {
			m1 = &progress.Members[i]
		}
	}
	if m1 == nil {
		t.Fatal("m1 missing from progress")
	}
	if m1.Done != 2 || m1.Total != 10 {
		t.Errorf("m1 progress = %d/%d, want 2/10", m1.Done, m1.Total)
	}
}

func TestProgressRejectsBadDate(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/api/progress?date=tomorrow")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSocketReceivesToggles(t *testing.T) {
	srv, engine := setupTestServer(t)
	NewHandler(srv, engine, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the initial progress view.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read welcome frame: %v", err)
	}
	var welcome Message
	if err := json.Unmarshal(data, &welcome); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	if welcome.Type != MessageTypeProgress {
		t.Errorf("welcome type = %s, want progress", welcome.Type)
	}

	if _, err := engine.Toggle(checklist.Today(), "m1", "t3"); err != nil {
		t.Fatal(err)
	}

	// The toggle arrives as a cell update.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read broadcast: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != MessageTypeCellUpdate {
			continue
		}

		var cell CellUpdateData
		if err := json.Unmarshal(msg.Data, &cell); err != nil {
			t.Fatalf("unmarshal cell update: %v", err)
		}
		if cell.MemberID != "m1" || cell.TaskID != "t3" || !cell.Value {
			t.Errorf("cell update = %+v, want m1/t3/true", cell)
		}
		return
	}
}
