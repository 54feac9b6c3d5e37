package scene

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrBadDataURL is returned by BinaryFile.Bytes for malformed data URLs.
var ErrBadDataURL = errors.New("malformed data url")

// BinaryFile is an embedded image attachment.
type BinaryFile struct {
	ID            string `json:"id"`
	MimeType      string `json:"mimeType"`
	DataURL       string `json:"dataURL"`
	Created       int64  `json:"created"`
	LastRetrieved int64  `json:"lastRetrieved,omitempty"`
}

// FileMap maps attachment id to attachment.
type FileMap map[string]*BinaryFile

// FileID returns the content address of data: hex BLAKE2b-160, the same
// length as the SHA-1 ids produced by the drawing surface.
func FileID(data []byte) string {
	h, _ := blake2b.New(20, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NewBinaryFile builds a content-addressed attachment.
func NewBinaryFile(mimeType string, data []byte, now time.Time) *BinaryFile {
	ms := now.UnixMilli()
	return &BinaryFile{
		ID:            FileID(data),
		MimeType:      mimeType,
		DataURL:       EncodeDataURL(mimeType, data),
		Created:       ms,
		LastRetrieved: ms,
	}
}

func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Bytes decodes the base64 payload of the data URL.
func (f *BinaryFile) Bytes() ([]byte, error) {
	_, payload, ok := strings.Cut(f.DataURL, "base64,")
	if !ok || !strings.HasPrefix(f.DataURL, "data:") {
		return nil, ErrBadDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Join(ErrBadDataURL, err)
	}
	return data, nil
}
