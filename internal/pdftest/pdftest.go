// Package pdftest builds tiny but structurally complete PDF documents for
// tests, so the real preflight parser can be exercised without fixture
// files.
package pdftest

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"strings"
)

// MakePDF returns a valid PDF with the given number of empty pages. Object
// offsets in the cross-reference table are computed exactly, so strict
// parsers accept the output.
func MakePDF(pages int) []byte {
	return makePDF(pages, false)
}

// MakeEncryptedPDF returns the MakePDF document encrypted with the standard
// security handler (RC4, 40-bit, revision 2) under empty passwords. Readers
// must run password validation to open it but need no credentials.
func MakeEncryptedPDF(pages int) []byte {
	return makePDF(pages, true)
}

func makePDF(pages int, encrypted bool) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj(fmt.Sprintf(
		"2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n",
		strings.Join(kids, " "), pages,
	))
	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n", 3+i))
	}

	trailerExtra := ""
	if encrypted {
		const perms int32 = -44
		fileID := md5.Sum([]byte("pdftest"))
		o, u := securityHandlerDigests(fileID[:], perms)
		writeObj(fmt.Sprintf(
			"%d 0 obj\n<< /Filter /Standard /V 1 /R 2 /Length 40 /O <%X> /U <%X> /P %d >>\nendobj\n",
			3+pages, o, u, perms,
		))
		trailerExtra = fmt.Sprintf(" /Encrypt %d 0 R /ID [<%X> <%X>]", 3+pages, fileID[:], fileID[:])
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf,
		"trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, trailerExtra, xrefOffset,
	)

	return buf.Bytes()
}

// pdfPad is the password padding constant of the standard security handler.
var pdfPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// securityHandlerDigests derives the /O and /U entries of a revision 2
// standard security handler with empty user and owner passwords.
func securityHandlerDigests(fileID []byte, perms int32) (o, u []byte) {
	// /O holds the padded user password encrypted under the hashed owner
	// password. Both passwords are empty, so the pad stands in for each.
	sum := md5.Sum(pdfPad)
	c, _ := rc4.NewCipher(sum[:5])
	o = make([]byte, len(pdfPad))
	c.XORKeyStream(o, pdfPad)

	// The 40-bit file key hashes the padded password, /O, /P as four
	// little-endian bytes and the first file ID element.
	h := md5.New()
	h.Write(pdfPad)
	h.Write(o)
	h.Write([]byte{byte(perms), byte(perms >> 8), byte(perms >> 16), byte(perms >> 24)})
	h.Write(fileID)
	key := h.Sum(nil)[:5]

	// /U holds the pad encrypted under the file key.
	c, _ = rc4.NewCipher(key)
	u = make([]byte, len(pdfPad))
	c.XORKeyStream(u, pdfPad)
	return o, u
}

// Corrupt returns bytes that carry the PDF magic but cannot be parsed.
func Corrupt() []byte {
	return []byte("%PDF-1.4\nthis is not a parseable document body\n")
}
