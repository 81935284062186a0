package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultRoomID = "default"

// Room is the persona and vocabulary configuration attached to a room id.
type Room struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Persona       string   `yaml:"persona"`
	Vocabulary    []string `yaml:"vocabulary"`
	Emojis        []string `yaml:"emojis"`
	FallbackTopic string   `yaml:"fallback_topic"`
}

var builtinRooms = []Room{
	{
		ID:            DefaultRoomID,
		Name:          "the community",
		Persona:       "a friendly long-time member of an online crypto community",
		FallbackTopic: "what is everyone building this week",
	},
	{
		ID:            "rialo",
		Name:          "Rialo",
		Persona:       "an early Rialo community member who hangs out in the chat every day",
		Vocabulary:    []string{"gm", "fam", "builders", "onchain"},
		Emojis:        []string{"🔥", "🫡", "💜"},
		FallbackTopic: "what got you into Rialo in the first place",
	},
}

// RoomRegistry resolves room ids to their configuration. Unknown ids resolve
// to the default room instead of failing.
type RoomRegistry struct {
	rooms map[string]Room
}

func NewRoomRegistry(extra ...Room) *RoomRegistry {
	r := &RoomRegistry{rooms: make(map[string]Room)}
	for _, room := range builtinRooms {
		r.add(room)
	}
	for _, room := range extra {
		r.add(room)
	}
	return r
}

// LoadRoomRegistry reads a YAML list of rooms that add to or override the
// built-in set. An empty path yields the built-in set.
func LoadRoomRegistry(path string) (*RoomRegistry, error) {
	if path == "" {
		return NewRoomRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms file %s: %w", path, err)
	}
	var file struct {
		Rooms []Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rooms file %s: %w", path, err)
	}
	for i, room := range file.Rooms {
		if strings.TrimSpace(room.ID) == "" {
			return nil, fmt.Errorf("room %d in %s has no id", i, path)
		}
	}
	return NewRoomRegistry(file.Rooms...), nil
}

func (r *RoomRegistry) add(room Room) {
	room.ID = strings.ToLower(strings.TrimSpace(room.ID))
	if room.Name == "" {
		room.Name = room.ID
	}
	// persona and fallback topic are never empty: missing ones come from the default room
	base, ok := r.rooms[DefaultRoomID]
	if !ok {
		base = builtinRooms[0]
	}
	if strings.TrimSpace(room.Persona) == "" {
		room.Persona = base.Persona
	}
	if strings.TrimSpace(room.FallbackTopic) == "" {
		room.FallbackTopic = base.FallbackTopic
	}
	r.rooms[room.ID] = room
}

func (r *RoomRegistry) Get(roomID string) Room {
	if room, ok := r.rooms[strings.ToLower(strings.TrimSpace(roomID))]; ok {
		return room
	}
	room := r.rooms[DefaultRoomID]
	if roomID != "" {
		// keep the caller's name in the persona line
		room.Name = roomID
	}
	return room
}
