// Package cli implements the scenesync command line client.
//
// Scene metadata commands (new, ls, rename, describe, publish, delete) talk
// to the scene store directly. watch, save and pull open a sync session that
// keeps a local .excalidraw file, the device cache and the remote row in
// step. preview and gc work on the local cache.
package cli
