// Package signature provides helper functions for handling the ledger's
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash is the previous hash recorded by the genesis block.
const ZeroHash string = "0"

// ledgerID is an arbitrary number added to the recovery id of every
// signature so signatures produced here are recognizable. Ethereum and
// Bitcoin do this as well, but they use the value of 27.
const ledgerID = 29

// ErrInvalidSignature is returned when a signature is not properly formatted.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// HashString returns the lower case hex encoded sha256 digest of the data
// without any prefix. Block hashes are produced with this function.
func HashString(data string) string {
	hash := sha256.Sum256([]byte(data))
	return common.Bytes2Hex(hash[:])
}

// Hash returns a unique 0x prefixed keccak256 string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return common.Hash{}.Hex()
	}

	return crypto.Keccak256Hash(data).Hex()
}

// HashSecret returns the one way digest used to lock an atomic swap to
// the knowledge of a secret.
func HashSecret(secret []byte) string {
	return crypto.Keccak256Hash(secret).Hex()
}

// Sign uses the specified private key to sign the value. The signature is
// returned in the hex encoded [R|S|V] format.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return "", ErrInvalidSignature
	}

	sig[crypto.RecoveryIDOffset] += ledgerID

	return hexutil.Encode(sig), nil
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(sigStr string) error {
	sig, err := toSignatureBytes(sigStr)
	if err != nil {
		return err
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromAddress extracts the address for the account that signed the value.
func FromAddress(value any, sigStr string) (string, error) {

	// NOTE: If the same exact value for the given signature is not provided
	// we will get the wrong from address. The public key is being extracted
	// from the data and signature.

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig, err := toSignatureBytes(sigStr)
	if err != nil {
		return "", err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this value with
// the ledger stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	txHash := crypto.Keccak256(v)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19Ledger Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash), nil
}

// toSignatureBytes decodes the hex signature and removes the ledgerID
// from the recovery id.
func toSignatureBytes(sigStr string) ([]byte, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	if len(sig) != crypto.SignatureLength {
		return nil, ErrInvalidSignature
	}

	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return nil, errors.New("invalid recovery id")
	}
	sig[crypto.RecoveryIDOffset] = v

	return sig, nil
}
