package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestClient_LookupFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("title"); got != "Some Song" {
			t.Errorf("title param = %q, want %q", got, "Some Song")
		}
		if got := r.URL.Query().Get("artist"); got != "Some Artist" {
			t.Errorf("artist param = %q, want %q", got, "Some Artist")
		}
		fmt.Fprint(w, `{"error":false,"found":true,"result":{"spotifyId":"track42","covers":{"big":"http://art/big.jpg"}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	result, err := client.Lookup(context.Background(), "Some Song", "Some Artist")
	if err != nil {
		t.Fatalf("Lookup() returned error: %v", err)
	}
	if result == nil {
		t.Fatal("Lookup() = nil, want result")
	}
	if result.SpotifyID != "track42" {
		t.Errorf("spotify id = %q, want %q", result.SpotifyID, "track42")
	}
	if result.CoverArt != "http://art/big.jpg" {
		t.Errorf("cover art = %q, want %q", result.CoverArt, "http://art/big.jpg")
	}
}

func TestClient_LookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":false,"found":false}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	result, err := client.Lookup(context.Background(), "Unknown", "Nobody")
	if err != nil {
		t.Fatalf("Lookup() returned error: %v", err)
	}
	if result != nil {
		t.Errorf("Lookup() = %+v, want nil for not found", result)
	}
}

func TestClient_LookupServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":true,"found":false}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	if _, err := client.Lookup(context.Background(), "Song", "Artist"); err == nil {
		t.Fatal("Lookup() returned nil error when service reported an error")
	}
}

func TestClient_LookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	if _, err := client.Lookup(context.Background(), "Song", "Artist"); err == nil {
		t.Fatal("Lookup() returned nil error on 500")
	}
}

func TestClient_LookupMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	if _, err := client.Lookup(context.Background(), "Song", "Artist"); err == nil {
		t.Fatal("Lookup() returned nil error on malformed body")
	}
}
