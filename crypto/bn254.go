package crypto

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/bn256/cloudflare"
)

// ErrBN254InvalidPoint is returned when an encoded curve point fails to
// parse (not on the curve, or out-of-range coordinates).
var ErrBN254InvalidPoint = errors.New("bn254: invalid point encoding")

// BN254Add computes the BN254 (alt_bn128) G1 point addition p1+p2. Each
// point is a 64-byte big-endian (x, y) pair; the result is encoded the
// same way. Delegates to go-ethereum's bn256/cloudflare implementation,
// the same one wired into go-ethereum's own EVM precompiles.
func BN254Add(p1, p2 []byte) ([]byte, error) {
	a, err := decodeBN254G1(p1)
	if err != nil {
		return nil, err
	}
	b, err := decodeBN254G1(p2)
	if err != nil {
		return nil, err
	}
	r := new(bn256.G1).Add(a, b)
	return encodeBN254G1(r), nil
}

// BN254ScalarMul computes scalar*p on BN254 G1. scalar is a 32-byte
// big-endian integer.
func BN254ScalarMul(p, scalar []byte) ([]byte, error) {
	a, err := decodeBN254G1(p)
	if err != nil {
		return nil, err
	}
	k := new(big.Int).SetBytes(scalar)
	r := new(bn256.G1).ScalarMult(a, k)
	return encodeBN254G1(r), nil
}

// BN254Pairing checks whether the product of pairings e(a_i, b_i) over all
// supplied (G1, G2) pairs equals 1 in GT. input must be a multiple of 192
// bytes (64-byte G1 || 128-byte G2 per pair).
func BN254Pairing(input []byte) (bool, error) {
	if len(input)%192 != 0 {
		return false, errors.New("bn254: invalid pairing input length")
	}
	n := len(input) / 192
	g1s := make([]*bn256.G1, n)
	g2s := make([]*bn256.G2, n)
	for i := 0; i < n; i++ {
		chunk := input[i*192 : (i+1)*192]
		g1, err := decodeBN254G1(chunk[:64])
		if err != nil {
			return false, err
		}
		g2, err := decodeBN254G2(chunk[64:192])
		if err != nil {
			return false, err
		}
		g1s[i] = g1
		g2s[i] = g2
	}
	if n == 0 {
		return true, nil
	}
	return bn256.PairingCheck(g1s, g2s), nil
}

func decodeBN254G1(buf []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(buf); err != nil {
		return nil, ErrBN254InvalidPoint
	}
	return p, nil
}

func decodeBN254G2(buf []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(buf); err != nil {
		return nil, ErrBN254InvalidPoint
	}
	return p, nil
}

func encodeBN254G1(p *bn256.G1) []byte {
	return p.Marshal()
}
