package signing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/betbot/copybot/clob/types"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestBuildPolyHmacSignature_KnownVectors(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		ts     int64
		method string
		path   string
		body   string
		want   string
	}{
		{"std base64 secret with body", "c2VjcmV0LWtleS0xMjM0NQ==", 1700000000, "POST", "/order", `{"a":1}`, "U1MDuYd15yoLSJq1Om9jjj1P-6nf-Ci55k5mgSrtY1s="},
		{"url-safe secret without body", "-vv8_f7_-__7__v_-_8=", 1700000001, "GET", "/positions", "", "K6TziNrZOVY8W50bnpRRUZSiu1EIF52jHW758mryuNM="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildPolyHmacSignature(tc.secret, tc.ts, tc.method, tc.path, tc.body)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestBuildClobEip712Signature_RecoversSigner(t *testing.T) {
	key, err := PrivateKeyFromHex("0x" + testKeyHex)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	sigHex, err := BuildClobEip712Signature(key, types.ChainPolygon, 1700000000, 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig, _ := hexutil.Decode(sigHex)
	if len(sig) != 65 || (sig[64] != 27 && sig[64] != 28) {
		t.Fatalf("bad signature shape: %s", sigHex)
	}

	hash, err := ClobAuthHash(GetAddressFromPrivateKey(key), types.ChainPolygon, 1700000000, 0)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != GetAddressFromPrivateKey(key) {
		t.Fatalf("recovered address mismatch")
	}
}

func TestCreateL2Headers(t *testing.T) {
	key, _ := PrivateKeyFromHex(testKeyHex)
	creds := &types.ApiKeyCreds{Key: "k", Secret: "c2VjcmV0LWtleS0xMjM0NQ==", Passphrase: "p"}
	h, err := CreateL2Headers(key, creds, types.L2HeaderArgs{Method: "POST", RequestPath: "/order", Body: `{"a":1}`}, 1700000000)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	m := h.Map()
	if m[types.HeaderPolySignature] != "U1MDuYd15yoLSJq1Om9jjj1P-6nf-Ci55k5mgSrtY1s=" {
		t.Fatalf("unexpected signature %q", m[types.HeaderPolySignature])
	}
	if m[types.HeaderPolyTimestamp] != "1700000000" || m[types.HeaderPolyAPIKey] != "k" || m[types.HeaderPolyPassphrase] != "p" {
		t.Fatalf("unexpected headers %v", m)
	}

	if _, err := CreateL2Headers(key, &types.ApiKeyCreds{Key: "k"}, types.L2HeaderArgs{}, 1); err == nil {
		t.Fatalf("expected error for incomplete creds")
	}
}

func TestSignPersonalMessage_Recover(t *testing.T) {
	key, _ := PrivateKeyFromHex(testKeyHex)
	msg := []byte(`{"market":"m","outcome":"Yes"}`)
	sig, err := SignPersonalMessage(key, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 132 {
		t.Fatalf("unexpected signature %s", sig)
	}
	addr, err := RecoverPersonalSigner(msg, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if addr != GetAddressFromPrivateKey(key) {
		t.Fatalf("recovered %s", addr.Hex())
	}
	other, _ := RecoverPersonalSigner([]byte("tampered"), sig)
	if other == addr {
		t.Fatalf("tampered message recovered the same signer")
	}
}

func TestNewBuilderSigner_Selection(t *testing.T) {
	if s := NewBuilderSigner(BuilderConfig{}); s != nil {
		t.Fatalf("expected nil signer, got %T", s)
	}
	if _, ok := NewBuilderSigner(BuilderConfig{APIKey: "k", Secret: "c2VjcmV0LWtleS0xMjM0NQ==", Passphrase: "p", RemoteURL: "http://x"}).(*LocalBuilderSigner); !ok {
		t.Fatalf("complete local creds should win")
	}
	if _, ok := NewBuilderSigner(BuilderConfig{APIKey: "k", RemoteURL: "http://x"}).(*RemoteBuilderSigner); !ok {
		t.Fatalf("incomplete creds with remote url should use remote signer")
	}
}

func TestLocalBuilderSigner_Headers(t *testing.T) {
	s := NewLocalBuilderSigner(types.ApiKeyCreds{Key: "bk", Secret: "c2VjcmV0LWtleS0xMjM0NQ==", Passphrase: "bp"})
	h, err := s.Sign(context.Background(), "POST", "/order", `{"a":1}`, 1700000000)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if h[types.HeaderBuilderSignature] != "U1MDuYd15yoLSJq1Om9jjj1P-6nf-Ci55k5mgSrtY1s=" || h[types.HeaderBuilderAPIKey] != "bk" {
		t.Fatalf("unexpected headers %v", h)
	}
}

func TestRemoteBuilderSigner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req remoteSignRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "POST" || req.Path != "/order" || req.Timestamp != 42 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			types.HeaderBuilderAPIKey:    "remote",
			types.HeaderBuilderSignature: "sig",
		})
	}))
	defer srv.Close()

	h, err := NewRemoteBuilderSigner(srv.URL, "tok").Sign(context.Background(), "POST", "/order", "{}", 42)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if h[types.HeaderBuilderAPIKey] != "remote" || h[types.HeaderBuilderSignature] != "sig" {
		t.Fatalf("unexpected headers %v", h)
	}

	if _, err := NewRemoteBuilderSigner(srv.URL, "").Sign(context.Background(), "POST", "/order", "{}", 42); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestRemoteBuilderSigner_ContentTypes(t *testing.T) {
	for _, ct := range []string{"", "text/plain; charset=utf-8", "application/json"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct != "" {
				w.Header().Set("Content-Type", ct)
			}
			_, _ = w.Write([]byte(`{"POLY_BUILDER_API_KEY":"remote","POLY_BUILDER_SIGNATURE":"sig"}`))
		}))
		h, err := NewRemoteBuilderSigner(srv.URL, "").Sign(context.Background(), "POST", "/order", "{}", 1)
		srv.Close()
		if err != nil {
			t.Fatalf("content-type %q: 签名失败: %v", ct, err)
		}
		if h[types.HeaderBuilderSignature] != "sig" {
			t.Fatalf("content-type %q: 签名头错误 %v", ct, h)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()
	if _, err := NewRemoteBuilderSigner(srv.URL, "").Sign(context.Background(), "POST", "/order", "{}", 1); err == nil {
		t.Fatalf("非 JSON 响应应报错")
	}
}
