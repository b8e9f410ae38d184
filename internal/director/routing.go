package director

import (
	"strings"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// DefaultRoutes maps an event category to the persona handles that react
// to it. Kept as data so routing stays independently testable; categories
// without an entry (or whose handles match no registered persona) fall back
// to free-text interest matching.
func DefaultRoutes() map[string][]string {
	return map[string][]string{
		"news":    {"newswire", "theanalyst"},
		"weather": {"weatherguy"},
	}
}

// matchPersonas resolves which personas react to an event: the routing
// table first, then interest keywords against the topic text.
func (d *Director) matchPersonas(event BotEvent) []persona.Persona {
	if handles, ok := d.routes[strings.ToLower(event.Kind)]; ok {
		wanted := make(map[string]struct{}, len(handles))
		for _, handle := range handles {
			wanted[strings.ToLower(handle)] = struct{}{}
		}
		var matched []persona.Persona
		for _, p := range d.personas {
			if _, ok := wanted[strings.ToLower(p.Handle())]; ok {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}

	topic := strings.ToLower(event.Topic)
	var matched []persona.Persona
	for _, p := range d.personas {
		for _, interest := range p.Interests() {
			if interest != "" && strings.Contains(topic, strings.ToLower(interest)) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}
