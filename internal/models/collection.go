package models

import "strings"

// Collection names a remote collection served by the academic API.
type Collection string

const (
	CollectionUsers          Collection = "users"
	CollectionCareers        Collection = "careers"
	CollectionSubjects       Collection = "subjects"
	CollectionGroups         Collection = "groups"
	CollectionAlerts         Collection = "alerts"
	CollectionTutorias       Collection = "tutorias"
	CollectionCapacitaciones Collection = "capacitaciones"
	CollectionReports        Collection = "reports"
)

// AllCollections lists every collection in load order.
var AllCollections = []Collection{
	CollectionUsers,
	CollectionCareers,
	CollectionSubjects,
	CollectionGroups,
	CollectionAlerts,
	CollectionTutorias,
	CollectionCapacitaciones,
	CollectionReports,
}

// Optional reports whether a failed load of the collection degrades to empty
// instead of being surfaced to the user. Some deployments of the academic API
// do not implement these endpoints yet.
func (c Collection) Optional() bool {
	switch c {
	case CollectionAlerts, CollectionTutorias, CollectionCapacitaciones, CollectionReports:
		return true
	default:
		return false
	}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// Label is the Spanish display name used in exports and banners.
func (c Collection) Label() string {
	switch c {
	case CollectionUsers:
		return "Usuarios"
	case CollectionCareers:
		return "Carreras"
	case CollectionSubjects:
		return "Materias"
	case CollectionGroups:
		return "Grupos"
	case CollectionAlerts:
		return "Alertas"
	case CollectionTutorias:
		return "Tutorías"
	case CollectionCapacitaciones:
		return "Capacitaciones"
	case CollectionReports:
		return "Reportes"
	default:
		return string(c)
	}
}

// ParseCollection resolves a path segment into a known collection.
func ParseCollection(raw string) (Collection, bool) {
	c := Collection(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}
