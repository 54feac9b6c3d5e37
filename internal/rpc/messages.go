package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/scenesync/internal/scene"
)

type Empty struct{}

type GetSceneRequest struct {
	ID int64 `json:"id"`
}

type GetSceneByNameRequest struct {
	Name string `json:"name"`
}

type ListScenesRequest struct{}

type ListScenesResponse struct {
	Scenes []scene.Scene `json:"scenes"`
}

type InsertSceneRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Published   bool           `json:"published"`
	Data        scene.Document `json:"data"`
}

type UpdateSceneRequest struct {
	ID    int64            `json:"id"`
	Patch scene.ScenePatch `json:"patch"`
}

type DeleteSceneRequest struct {
	ID int64 `json:"id"`
}

type SceneResponse struct {
	Scene scene.Scene `json:"scene"`
}

// Encode converts a JSON-tagged Go value into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc encode: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("rpc encode: %w", err)
	}
	return s, nil
}

// Decode fills v from a Struct.
func Decode(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("rpc decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("rpc decode: %w", err)
	}
	return nil
}
