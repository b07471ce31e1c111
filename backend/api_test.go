package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	withConfig(t, fastAIConfig())
	controller := NewGameController(GameSettings{BoardSize: 5, BlackType: PlayerHuman, WhiteType: PlayerHuman})
	server := httptest.NewServer(newRouter(controller, NewHub(), NewSearchHub()))
	t.Cleanup(func() {
		server.Close()
		controller.StopGame()
	})
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func startHumanGame(t *testing.T, server *httptest.Server) StatusResponse {
	t.Helper()
	var status StatusResponse
	body := map[string]any{"settings": map[string]any{"mode": "human_vs_human", "board_size": 5}}
	if code := doJSON(t, server, http.MethodPost, "/api/start", body, &status); code != http.StatusOK {
		t.Fatalf("start returned %d", code)
	}
	return status
}

func TestAPIStartAndPlay(t *testing.T) {
	server := newTestServer(t)
	status := startHumanGame(t, server)
	if status.Status != "running" || status.BoardSize != 5 || status.NextPlayer != 1 {
		t.Fatalf("unexpected start status %+v", status)
	}

	var after StatusResponse
	if code := doJSON(t, server, http.MethodPost, "/api/move", apiMove{Kind: "play", X: 2, Y: 1}, &after); code != http.StatusOK {
		t.Fatalf("move returned %d", code)
	}
	if after.Board[1][2] != 1 || after.MoveCount != 1 || after.NextPlayer != 2 {
		t.Fatalf("move not reflected in status %+v", after)
	}
	if len(after.History) != 1 || len(after.History[0].Changes) != 1 {
		t.Fatalf("unexpected history %+v", after.History)
	}

	var failure map[string]string
	if code := doJSON(t, server, http.MethodPost, "/api/move", apiMove{X: 2, Y: 1}, &failure); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for occupied point, got %d", code)
	}
	if failure["error"] != "Illegal move: "+ReasonOccupied {
		t.Fatalf("unexpected error %q", failure["error"])
	}
}

func TestAPIRejectsMoveOffTheBoard(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	var failure map[string]string
	if code := doJSON(t, server, http.MethodPost, "/api/move", apiMove{X: 5, Y: 0}, &failure); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an off-board move, got %d", code)
	}
	if failure["error"] != "move (5,0) outside 5x5 board" {
		t.Fatalf("unexpected error %q", failure["error"])
	}
}

func TestAPILegalMoves(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	doJSON(t, server, http.MethodPost, "/api/move", apiMove{X: 0, Y: 0}, nil)

	var legal legalMovesResponse
	if code := doJSON(t, server, http.MethodGet, "/api/legal", nil, &legal); code != http.StatusOK {
		t.Fatalf("legal returned %d", code)
	}
	if legal.NextPlayer != 2 || len(legal.Moves) != 26 {
		t.Fatalf("expected 26 moves for white, got %d (player %d)", len(legal.Moves), legal.NextPlayer)
	}
	if legal.Moves[24] != Pass() || legal.Moves[25] != Resign() {
		t.Fatalf("pass and resign should close the list")
	}
}

func TestAPITwoPassesEndTheGame(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	var status StatusResponse
	for i := 0; i < 2; i++ {
		if code := doJSON(t, server, http.MethodPost, "/api/move", apiMove{Kind: "pass"}, &status); code != http.StatusOK {
			t.Fatalf("pass %d returned %d", i, code)
		}
	}
	if status.Status != "ended" || !status.Terminal || status.Winner != 0 {
		t.Fatalf("unexpected status after two passes %+v", status)
	}
}

func TestAPIResignDeclaresWinner(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	var status StatusResponse
	doJSON(t, server, http.MethodPost, "/api/move", apiMove{Kind: "resign"}, &status)
	if status.Status != "white_won" || status.Winner != 2 {
		t.Fatalf("unexpected status after black resigns %+v", status)
	}
}

func TestAPIAnalyze(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)

	var result analyzeResponse
	if code := doJSON(t, server, http.MethodPost, "/api/analyze", analyzeRequest{Depth: 1}, &result); code != http.StatusOK {
		t.Fatalf("analyze returned %d", code)
	}
	if result.Depth != 1 || !result.Move.IsPlay() || result.Player != 1 || result.Nodes == 0 {
		t.Fatalf("unexpected analysis %+v", result)
	}

	var status StatusResponse
	doJSON(t, server, http.MethodGet, "/api/status", nil, &status)
	if status.MoveCount != 0 {
		t.Fatalf("analyze must not play")
	}
}

func TestAPIAnalyzeWithZeroBudgetReturnsAtOnce(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	zero := 0.0
	var result analyzeResponse
	start := time.Now()
	if code := doJSON(t, server, http.MethodPost, "/api/analyze", analyzeRequest{Depth: 8, TimeBudgetSec: &zero}, &result); code != http.StatusOK {
		t.Fatalf("analyze returned %d", code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("zero budget analysis took %s", elapsed)
	}
	if result.Move != Pass() || result.Depth != 0 || !result.TimedOut {
		t.Fatalf("expected an immediate pass, got %+v", result)
	}
}

func TestAPIRejectsBadSettings(t *testing.T) {
	server := newTestServer(t)
	cases := []map[string]any{
		{"settings": map[string]any{"mode": "robot_vs_robot"}},
		{"settings": map[string]any{"board_size": 3}},
		{"settings": map[string]any{"board_size": 25}},
	}
	for _, body := range cases {
		if code := doJSON(t, server, http.MethodPost, "/api/start", body, nil); code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, code)
		}
	}
}

func TestAPITTCache(t *testing.T) {
	server := newTestServer(t)
	startHumanGame(t, server)
	doJSON(t, server, http.MethodPost, "/api/analyze", analyzeRequest{Depth: 2}, nil)

	var status ttCacheStatusResponse
	doJSON(t, server, http.MethodGet, "/api/cache/tt", nil, &status)
	if !status.Enabled || status.Count == 0 || status.Capacity == 0 {
		t.Fatalf("expected a populated table, got %+v", status)
	}

	var entries ttCacheEntriesResponse
	doJSON(t, server, http.MethodGet, "/api/cache/tt/entries?limit=5", nil, &entries)
	if entries.Total != status.Count || len(entries.Items) == 0 || len(entries.Items) > 5 {
		t.Fatalf("unexpected entries page %+v", entries)
	}

	var deleted map[string]any
	doJSON(t, server, http.MethodDelete, "/api/cache/tt/entries/"+entries.Items[0].Hash, nil, &deleted)
	if deleted["deleted"] != true {
		t.Fatalf("expected entry to be deleted: %v", deleted)
	}

	doJSON(t, server, http.MethodDelete, "/api/cache/tt", nil, nil)
	doJSON(t, server, http.MethodGet, "/api/cache/tt", nil, &status)
	if status.Count != 0 {
		t.Fatalf("expected empty table after flush, got %d", status.Count)
	}
}
