// Package scene holds the domain model shared by the scenesync client and
// server: scenes, their drawing documents, and binary attachments.
//
// # Documents
//
// A Document is the mutable drawing content of a Scene. Elements and app
// state are kept as loosely typed maps so that shape fields this package
// does not know about survive a round-trip through the local cache and the
// remote store untouched.
//
// Before a document is persisted or pushed it is sanitized: tombstoned
// elements (isDeleted = true) are dropped and ephemeral app-state fields
// such as collaborator presence are stripped. Two sanitized documents are
// compared with Document.Equal, which is what lets the sync engine skip
// redundant remote writes.
//
// # Attachments
//
// BinaryFile mirrors the drawing surface's file record (id, mime type, data
// URL, timestamps). Files created locally get content-addressed ids, see
// NewBinaryFile.
package scene
