package localcache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// fileRecord is the cached form of an attachment. The payload is kept as
// raw bytes rather than a base64 data URL.
type fileRecord struct {
	ID            string `cbor:"1,keyasint"`
	MimeType      string `cbor:"2,keyasint"`
	Data          []byte `cbor:"3,keyasint"`
	Created       int64  `cbor:"4,keyasint"`
	LastRetrieved int64  `cbor:"5,keyasint,omitempty"`
}

var fileEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func encodeFile(f *scene.BinaryFile) ([]byte, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", f.ID, err)
	}
	return fileEncMode.Marshal(fileRecord{
		ID:            f.ID,
		MimeType:      f.MimeType,
		Data:          data,
		Created:       f.Created,
		LastRetrieved: f.LastRetrieved,
	})
}

func decodeFile(b []byte) (*scene.BinaryFile, error) {
	var rec fileRecord
	if err := cbor.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("decode file record: missing id")
	}
	return &scene.BinaryFile{
		ID:            rec.ID,
		MimeType:      rec.MimeType,
		DataURL:       scene.EncodeDataURL(rec.MimeType, rec.Data),
		Created:       rec.Created,
		LastRetrieved: rec.LastRetrieved,
	}, nil
}
