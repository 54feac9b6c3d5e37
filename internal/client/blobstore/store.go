// Package blobstore stores scene attachments in a remote object store.
//
// Objects are namespaced per owner and scene: <ownerId>/<sceneId>/<fileId>.
// The scene id is used rather than its name so that renaming a scene does
// not orphan its attachments.
package blobstore

import (
	"context"
	"strconv"
	"strings"
)

// Namespace scopes attachment objects to one scene.
type Namespace struct {
	OwnerID string
	SceneID int64
}

func (n Namespace) Prefix() string {
	return n.OwnerID + "/" + strconv.FormatInt(n.SceneID, 10) + "/"
}

func (n Namespace) Key(fileID string) string {
	return n.Prefix() + fileID
}

// FileID returns the last path segment of an object key.
func FileID(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Object is a downloaded attachment.
type Object struct {
	Data        []byte
	ContentType string
}

type UploadOptions struct {
	ContentType string
	// Overwrite replaces an existing object. When false the upload is
	// conditional and an existing object is kept.
	Overwrite bool
}

type Store interface {
	List(ctx context.Context, ns Namespace) ([]string, error)
	Download(ctx context.Context, ns Namespace, fileID string) (Object, error)
	Upload(ctx context.Context, ns Namespace, fileID string, data []byte, opts UploadOptions) error
}
