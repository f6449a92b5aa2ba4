package artifact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	dErrors "licensing/pkg/domain-errors"
)

const qrSize = 256

// Payload is the content of the verification QR code.
type Payload struct {
	Number      string `json:"ln"`
	CandidateID string `json:"cid"`
	Signature   string `json:"sig,omitempty"`
}

// Signer computes and checks payload signatures. A zero Signer leaves
// payloads unsigned and accepts unsigned payloads.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) Signer {
	return Signer{key: key}
}

func (s Signer) Enabled() bool { return len(s.key) > 0 }

// Sign returns the encoded payload for a license number and candidate id.
func (s Signer) Sign(number, candidateID string) (string, error) {
	p := Payload{Number: number, CandidateID: candidateID}
	if s.Enabled() {
		p.Signature = s.mac(p)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	return string(b), nil
}

// Verify decodes an encoded payload and checks its signature.
func (s Signer) Verify(encoded string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(encoded)), &p); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verification payload is not valid JSON")
	}
	if p.Number == "" || p.CandidateID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verification payload is incomplete")
	}
	if !s.Enabled() {
		return &p, nil
	}
	got, err := hex.DecodeString(p.Signature)
	if err != nil || !hmac.Equal(got, s.sum(p)) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verification payload signature does not match")
	}
	return &p, nil
}

func (s Signer) sum(p Payload) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(p.Number))
	h.Write([]byte{'|'})
	h.Write([]byte(p.CandidateID))
	return h.Sum(nil)
}

func (s Signer) mac(p Payload) string {
	return hex.EncodeToString(s.sum(p))
}

// QRCode encodes content as a PNG QR image.
func QRCode(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
