package activity

import (
	"strings"
	"time"
)

const (
	VerbContainerCreated      = "container.created"
	VerbContainerDeserialised = "container.deserialised"
	VerbPropertyUpdated       = "property.updated"
)

// ContainerEventInput describes the common fields for container lifecycle
// events.
type ContainerEventInput struct {
	ActorID     string
	UserID      string
	TenantID    string
	Channel     string
	Schema      string
	ContainerID string
	SourceID    string
	Property    string
	OldValue    any
	NewValue    any
	Contexts    []string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// BuildContainerCreatedEvent describes a freshly constructed container.
func BuildContainerCreatedEvent(input ContainerEventInput) Event {
	return buildContainerEvent(VerbContainerCreated, input)
}

// BuildContainerDeserialisedEvent describes a container rebuilt from a
// serialised representation. SourceID carries the identity it replaced.
func BuildContainerDeserialisedEvent(input ContainerEventInput) Event {
	return buildContainerEvent(VerbContainerDeserialised, input)
}

// BuildPropertyUpdatedEvent describes a committed property write.
func BuildPropertyUpdatedEvent(input ContainerEventInput) Event {
	return buildContainerEvent(VerbPropertyUpdated, input)
}

func buildContainerEvent(verb string, input ContainerEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Property != "" {
		metadata = ensureMetadata(metadata)
		metadata["property"] = input.Property
	}
	if input.SourceID != "" {
		metadata = ensureMetadata(metadata)
		metadata["source_id"] = input.SourceID
	}
	if len(input.Contexts) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["contexts"] = append([]string{}, input.Contexts...)
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectType := strings.TrimSpace(input.Schema)
	if objectType == "" {
		objectType = "container"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(input.ContainerID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
