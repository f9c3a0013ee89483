package encryptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEncryptDirection(t *testing.T) {
	var gotDirection bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Direction bool `json:"direction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		gotDirection = in.Direction
		fmt.Fprint(w, `{"ciphertext":"0xdeadbeef"}`)
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL)
	ct, err := e.EncryptDirection(context.Background(), true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !gotDirection {
		t.Error("direction not forwarded")
	}
	if !bytes.Equal(ct, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("ciphertext %x", ct)
	}
}

func TestEncryptDirectionBareHex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ciphertext":"0a0b"}`)
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL)
	ct, err := e.EncryptDirection(context.Background(), false)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(ct, []byte{0x0a, 0x0b}) {
		t.Errorf("ciphertext %x", ct)
	}
}

func TestEncryptDirectionErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}},
		{"bad hex", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ciphertext":"zz"}`)
		}},
		{"empty ciphertext", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ciphertext":""}`)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			e := NewHTTP(srv.URL)
			if _, err := e.EncryptDirection(context.Background(), true); err == nil {
				t.Error("expected error")
			}
		})
	}
}
