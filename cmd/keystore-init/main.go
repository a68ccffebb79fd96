// keystore-init writes the trading wallet's private key into the encrypted
// badger secret store, derived from a mnemonic or imported from PRIVATE_KEY.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/pkg/secretstore"
)

const defaultDerivationPath = "m/44'/60'/0'/0/0"

type derivedWallet struct {
	PrivateKeyHex string
	Address       string
}

func main() {
	_ = godotenv.Load()

	var (
		storePath = flag.String("store", getenv("SECRET_STORE_PATH", "data/secrets.badger"), "badger secret store path")
		path      = flag.String("path", defaultDerivationPath, "BIP44 derivation path")
		fromEnv   = flag.Bool("from-env", false, "import PRIVATE_KEY / POLYMARKET_PRIVATE_KEY instead of a mnemonic")
		force     = flag.Bool("force", false, "overwrite an existing key")
	)
	flag.Parse()

	masterKey, err := secretstore.ParseKey(os.Getenv("COPYBOT_MASTER_KEY"))
	if err != nil {
		fatal(err)
	}
	if masterKey == nil {
		fatal(errors.New("COPYBOT_MASTER_KEY is required (32 bytes, base64 or hex)"))
	}

	var w *derivedWallet
	if *fromEnv {
		w, err = walletFromHex(firstEnv("PRIVATE_KEY", "POLYMARKET_PRIVATE_KEY"))
	} else {
		fmt.Fprintln(os.Stderr, "请输入助记词（12/15/18/21/24 个单词），输入完成后回车：")
		w, err = deriveWallet(readLine(), *path)
	}
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{Path: *storePath, EncryptionKey: masterKey})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	if _, ok, err := ss.GetString(secretstore.KeyPrivateKey); err != nil {
		fatal(err)
	} else if ok && !*force {
		fatal(fmt.Errorf("store already holds a private key: %s (use -force to overwrite)", *storePath))
	}
	if err := ss.SetString(secretstore.KeyPrivateKey, w.PrivateKeyHex); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "已写入：%s（地址 %s）\n", *storePath, w.Address)
}

func deriveWallet(mnemonic, derivationPath string) (*derivedWallet, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, errors.New("mnemonic is empty")
	}
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(strings.TrimSpace(derivationPath))
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path: %w", err)
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("derive failed: %w", err)
	}
	pk, err := w.PrivateKeyHex(acct)
	if err != nil {
		return nil, fmt.Errorf("private key failed: %w", err)
	}
	return &derivedWallet{PrivateKeyHex: pk, Address: acct.Address.Hex()}, nil
}

func walletFromHex(hexKey string) (*derivedWallet, error) {
	if hexKey == "" {
		return nil, errors.New("PRIVATE_KEY is not set")
	}
	key, err := signing.PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	addr := signing.GetAddressFromPrivateKey(key)
	return &derivedWallet{PrivateKeyHex: strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"), Address: addr.Hex()}, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func readLine() string {
	br := bufio.NewReader(os.Stdin)
	s, _ := br.ReadString('\n')
	return strings.TrimSpace(s)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
