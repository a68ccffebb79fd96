package secretstore

import (
	"strings"
	"testing"
)

const masterHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestParseKey(t *testing.T) {
	if k, err := ParseKey(""); err != nil || k != nil {
		t.Fatalf("empty key: %v %v", k, err)
	}
	if k, err := ParseKey("0x" + masterHex); err != nil || len(k) != 32 {
		t.Fatalf("hex key: %v", err)
	}
	if k, err := ParseKey("AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="); err != nil || k[31] != 0x1f {
		t.Fatalf("base64 key: %v", err)
	}
	if _, err := ParseKey("abcd"); err == nil {
		t.Fatalf("expected short key error")
	}
	if _, err := ParseKey("not a key!"); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestStore_RoundTripEncrypted(t *testing.T) {
	dir := t.TempDir()
	key, _ := ParseKey(masterHex)

	st, err := Open(OpenOptions{Path: dir, EncryptionKey: key})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := st.GetString(KeyPrivateKey); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := st.SetString(KeyPrivateKey, "0xdeadbeef"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	pk, err := ReadPrivateKey(dir, masterHex)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pk != "0xdeadbeef" {
		t.Fatalf("got %q", pk)
	}

	if _, err := ReadPrivateKey(dir, strings.Repeat("ff", 32)); err == nil {
		t.Fatalf("expected error with wrong master key")
	}
}
