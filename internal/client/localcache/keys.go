package localcache

import (
	"strconv"
	"strings"
)

const (
	scenePrefix = "scene/"
	filePrefix  = "file/"

	deviceOriginKey = "device/origin"
	authTokenKey    = "auth/token"
)

func sceneKey(sceneID int64, part string) string {
	return scenePrefix + strconv.FormatInt(sceneID, 10) + "/" + part
}

func elementsKey(sceneID int64) string { return sceneKey(sceneID, "elements") }
func appStateKey(sceneID int64) string { return sceneKey(sceneID, "appstate") }
func previewKey(sceneID int64) string  { return sceneKey(sceneID, "preview") }

func fileKey(fileID string) string { return filePrefix + fileID }

// parseSceneKey extracts the scene id from a per-scene key.
func parseSceneKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, scenePrefix)
	if !ok {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
