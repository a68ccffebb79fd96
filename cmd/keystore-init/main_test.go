package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "test test test test test test test test test test test junk"
	testAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func TestDeriveWallet(t *testing.T) {
	w, err := deriveWallet(testMnemonic, defaultDerivationPath)
	require.NoError(t, err)
	assert.Equal(t, testAddress, w.Address)
	assert.Equal(t, testKeyHex, w.PrivateKeyHex)
}

func TestDeriveWallet_Errors(t *testing.T) {
	_, err := deriveWallet("", defaultDerivationPath)
	assert.Error(t, err)

	_, err = deriveWallet("not a real mnemonic", defaultDerivationPath)
	assert.Error(t, err)

	_, err = deriveWallet(testMnemonic, "m/bogus")
	assert.Error(t, err)
}

func TestWalletFromHex(t *testing.T) {
	w, err := walletFromHex("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testAddress, w.Address)
	assert.Equal(t, testKeyHex, w.PrivateKeyHex)

	_, err = walletFromHex("")
	assert.Error(t, err)
}
