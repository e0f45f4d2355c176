package files

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"handwerk/internal/core/id"
)

func TestSignaturePath(t *testing.T) {
	qid := id.MustParse("019a2b3c-0000-7000-8000-000000000001")
	assert.Equal(t, "signatures/019a2b3c-0000-7000-8000-000000000001.png", SignaturePath(qid))
}

func TestAttachmentPath(t *testing.T) {
	owner := id.MustParse("019a2b3c-0000-7000-8000-000000000002")
	assert.Equal(t,
		"receipts/019a2b3c-0000-7000-8000-000000000002-baumarkt-quittung-marz.pdf",
		AttachmentPath("/receipts/", owner, "Baumarkt Quittung März.PDF"))
	assert.Equal(t,
		"receipts/019a2b3c-0000-7000-8000-000000000002-file",
		AttachmentPath("receipts", owner, "???"))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/files/signatures/a.png", JoinURL("http://localhost:8080/files/", "/signatures/a.png"))
}
