// Package artifact renders the downloadable license card.
//
// Rendering is a pure function of the license, the holder and the photo
// bytes: it performs no I/O, writes nothing and embeds no clock reading, so
// the same inputs always produce the same document.
package artifact

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"

	candidatemodels "licensing/internal/candidate/models"
	licensemodels "licensing/internal/license/models"
	dErrors "licensing/pkg/domain-errors"
)

//go:embed templates/card.html.tmpl
var templateFS embed.FS

var cardTemplate = template.Must(template.ParseFS(templateFS, "templates/card.html.tmpl"))

const dateLayout = "02 Jan 2006"

// Document is a rendered license card.
type Document struct {
	ContentType      string
	Filename         string
	Body             []byte
	PhotoPlaceholder bool
	// PhotoError explains why the placeholder was used, when it was.
	PhotoError error
}

// Renderer builds license documents.
type Renderer struct {
	authority string
	signer    Signer
}

// NewRenderer builds a renderer. An empty signingKey leaves QR payloads unsigned.
func NewRenderer(authority string, signingKey []byte) *Renderer {
	return &Renderer{authority: authority, signer: NewSigner(signingKey)}
}

type cardView struct {
	Authority  string
	HolderName string
	Number     string
	Class      string
	IssuedAt   string
	ExpiresAt  string
	Status     string
	PhotoURI   template.URL
	QRURI      template.URL
}

// Render produces the HTML card. An unreadable or missing photo never fails
// the render; the placeholder is used and Document.PhotoPlaceholder is set.
func (r *Renderer) Render(l *licensemodels.License, c *candidatemodels.Candidate, photo []byte) (*Document, error) {
	if l == nil || c == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "license and holder are required to render")
	}

	doc := &Document{
		ContentType: "text/html; charset=utf-8",
		Filename:    fmt.Sprintf("license-%s.html", l.Number),
	}

	portrait, err := FitPhoto(photo)
	if err != nil {
		portrait = PlaceholderPhoto()
		doc.PhotoPlaceholder = true
		doc.PhotoError = err
	}

	payload, err := r.signer.Sign(l.Number, l.CandidateID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build verification payload")
	}
	qr, err := QRCode(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render verification code")
	}

	view := cardView{
		Authority:  r.authority,
		HolderName: c.FullName,
		Number:     l.Number,
		Class:      string(l.Class),
		IssuedAt:   l.IssuedAt.UTC().Format(dateLayout),
		ExpiresAt:  l.ExpiresAt.UTC().Format(dateLayout),
		Status:     string(l.Status),
		PhotoURI:   pngDataURI(portrait),
		QRURI:      pngDataURI(qr),
	}
	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, view); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render license document")
	}
	doc.Body = buf.Bytes()
	return doc, nil
}

// VerifyPayload checks a scanned QR payload.
func (r *Renderer) VerifyPayload(encoded string) (*Payload, error) {
	return r.signer.Verify(encoded)
}

func pngDataURI(b []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
}
