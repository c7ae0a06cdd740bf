package enums

import "fmt"

// Actor records who performed a status or payment transition.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

var validActors = []Actor{
	ActorUser,
	ActorAdmin,
	ActorSystem,
}

// IsValid reports whether the value matches the canonical actor enum.
func (a Actor) IsValid() bool {
	for _, candidate := range validActors {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActor converts the raw string to Actor.
func ParseActor(value string) (Actor, error) {
	for _, candidate := range validActors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor %q", value)
}
