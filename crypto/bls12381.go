package crypto

import (
	"errors"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
)

// EIP-2537 encodes every field element zero-padded to 64 bytes (the native
// field is ~48 bytes); a G1 point is two field elements (128 bytes) and a
// G2 point is four (256 bytes), following gnark-crypto's own Fp layout
// rather than hand-rolling curve arithmetic. This mirrors go-ethereum's own
// BLS12-381 precompiles, which import this same gnark-crypto package.
const (
	BLS12FieldBytes  = 64
	BLS12G1Bytes     = 2 * BLS12FieldBytes
	BLS12G2Bytes     = 4 * BLS12FieldBytes
	BLS12ScalarBytes = 32
)

var (
	ErrBLS12InvalidFieldElement = errors.New("bls12-381: invalid field element")
	ErrBLS12InvalidEncoding     = errors.New("bls12-381: invalid point encoding")
)

// decodeFp decodes a 64-byte zero-padded big-endian field element.
func decodeFp(buf []byte) (fp.Element, error) {
	var e fp.Element
	if len(buf) != BLS12FieldBytes {
		return e, ErrBLS12InvalidEncoding
	}
	// Top 16 bytes must be zero (padding); the low 48 bytes carry the value.
	for _, b := range buf[:BLS12FieldBytes-48] {
		if b != 0 {
			return e, ErrBLS12InvalidFieldElement
		}
	}
	e.SetBytes(buf[BLS12FieldBytes-48:])
	return e, nil
}

func encodeFp(e *fp.Element) []byte {
	out := make([]byte, BLS12FieldBytes)
	b := e.Bytes()
	copy(out[BLS12FieldBytes-48:], b[:])
	return out
}

func decodeG1(buf []byte) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if len(buf) != BLS12G1Bytes {
		return p, ErrBLS12InvalidEncoding
	}
	x, err := decodeFp(buf[:BLS12FieldBytes])
	if err != nil {
		return p, err
	}
	y, err := decodeFp(buf[BLS12FieldBytes:])
	if err != nil {
		return p, err
	}
	p.X, p.Y = x, y
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil // point at infinity
	}
	if !p.IsOnCurve() {
		return p, ErrBLS12InvalidEncoding
	}
	return p, nil
}

func encodeG1(p *bls12381.G1Affine) []byte {
	out := make([]byte, BLS12G1Bytes)
	copy(out[:BLS12FieldBytes], encodeFp(&p.X))
	copy(out[BLS12FieldBytes:], encodeFp(&p.Y))
	return out
}

func decodeG2(buf []byte) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if len(buf) != BLS12G2Bytes {
		return p, ErrBLS12InvalidEncoding
	}
	c0, err := decodeFp(buf[0*BLS12FieldBytes : 1*BLS12FieldBytes])
	if err != nil {
		return p, err
	}
	c1, err := decodeFp(buf[1*BLS12FieldBytes : 2*BLS12FieldBytes])
	if err != nil {
		return p, err
	}
	d0, err := decodeFp(buf[2*BLS12FieldBytes : 3*BLS12FieldBytes])
	if err != nil {
		return p, err
	}
	d1, err := decodeFp(buf[3*BLS12FieldBytes : 4*BLS12FieldBytes])
	if err != nil {
		return p, err
	}
	p.X.A0, p.X.A1 = c0, c1
	p.Y.A0, p.Y.A1 = d0, d1
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return p, ErrBLS12InvalidEncoding
	}
	return p, nil
}

func encodeG2(p *bls12381.G2Affine) []byte {
	out := make([]byte, BLS12G2Bytes)
	copy(out[0*BLS12FieldBytes:], encodeFp(&p.X.A0))
	copy(out[1*BLS12FieldBytes:], encodeFp(&p.X.A1))
	copy(out[2*BLS12FieldBytes:], encodeFp(&p.Y.A0))
	copy(out[3*BLS12FieldBytes:], encodeFp(&p.Y.A1))
	return out
}

// BLS12G1Add computes p1+p2 on the BLS12-381 G1 curve (EIP-2537 0x0b).
func BLS12G1Add(p1, p2 []byte) ([]byte, error) {
	a, err := decodeG1(p1)
	if err != nil {
		return nil, err
	}
	b, err := decodeG1(p2)
	if err != nil {
		return nil, err
	}
	var r bls12381.G1Jac
	r.FromAffine(&a)
	r.AddMixed(&b)
	var out bls12381.G1Affine
	out.FromJacobian(&r)
	return encodeG1(&out), nil
}

// BLS12G1Mul computes scalar*p on BLS12-381 G1 (EIP-2537 0x0c single-pair
// path, also used for the multi-scalar-multiplication precompile by summing
// the results of repeated calls).
func BLS12G1Mul(p, scalar []byte) ([]byte, error) {
	a, err := decodeG1(p)
	if err != nil {
		return nil, err
	}
	k := new(big.Int).SetBytes(scalar)
	var r bls12381.G1Jac
	r.FromAffine(&a)
	r.ScalarMultiplication(&r, k)
	var out bls12381.G1Affine
	out.FromJacobian(&r)
	return encodeG1(&out), nil
}

// BLS12G2Add computes p1+p2 on the BLS12-381 G2 curve (EIP-2537 0x0e).
func BLS12G2Add(p1, p2 []byte) ([]byte, error) {
	a, err := decodeG2(p1)
	if err != nil {
		return nil, err
	}
	b, err := decodeG2(p2)
	if err != nil {
		return nil, err
	}
	var r bls12381.G2Jac
	r.FromAffine(&a)
	r.AddMixed(&b)
	var out bls12381.G2Affine
	out.FromJacobian(&r)
	return encodeG2(&out), nil
}

// BLS12G2Mul computes scalar*p on BLS12-381 G2 (EIP-2537 0x0f).
func BLS12G2Mul(p, scalar []byte) ([]byte, error) {
	a, err := decodeG2(p)
	if err != nil {
		return nil, err
	}
	k := new(big.Int).SetBytes(scalar)
	var r bls12381.G2Jac
	r.FromAffine(&a)
	r.ScalarMultiplication(&r, k)
	var out bls12381.G2Affine
	out.FromJacobian(&r)
	return encodeG2(&out), nil
}

// BLS12Pairing checks whether the product of pairings e(g1_i, g2_i) equals 1
// in GT (EIP-2537 0x11).
func BLS12Pairing(g1s []bls12381.G1Affine, g2s []bls12381.G2Affine) (bool, error) {
	if len(g1s) == 0 {
		return false, errors.New("bls12-381: empty pairing input")
	}
	ok, err := bls12381.PairingCheck(g1s, g2s)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// BLS12MapFpToG1 maps a field element to a G1 point (EIP-2537 0x12).
func BLS12MapFpToG1(buf []byte) ([]byte, error) {
	e, err := decodeFp(buf)
	if err != nil {
		return nil, err
	}
	p := bls12381.MapToG1(e)
	return encodeG1(&p), nil
}

// BLS12MapFp2ToG2 maps an Fp2 element to a G2 point (EIP-2537 0x13).
func BLS12MapFp2ToG2(buf []byte) ([]byte, error) {
	if len(buf) != 2*BLS12FieldBytes {
		return nil, ErrBLS12InvalidEncoding
	}
	c0, err := decodeFp(buf[:BLS12FieldBytes])
	if err != nil {
		return nil, err
	}
	c1, err := decodeFp(buf[BLS12FieldBytes:])
	if err != nil {
		return nil, err
	}
	var e2 bls12381.E2
	e2.A0, e2.A1 = c0, c1
	p := bls12381.MapToG2(e2)
	return encodeG2(&p), nil
}

// DecodeBLS12G1 and DecodeBLS12G2 expose the point decoders so the
// precompile dispatcher can batch-decode pairing/MSM inputs.
func DecodeBLS12G1(buf []byte) (bls12381.G1Affine, error) { return decodeG1(buf) }
func DecodeBLS12G2(buf []byte) (bls12381.G2Affine, error) { return decodeG2(buf) }
