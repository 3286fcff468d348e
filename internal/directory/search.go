package directory

import (
	"sort"
	"strings"

	"campus_wayfinder/internal/models"
)

// AllBuildings matches services in any building.
const AllBuildings = "all"

// Search filters services for the public directory. Only services that are
// in a building are listed. query matches the service name or any specialty,
// case-insensitively; building matches the building name exactly, with ""
// or AllBuildings meaning any. Results are ordered by building name, then
// service name.
func Search(services []models.Service, query, building string) []models.Service {
	q := strings.ToLower(strings.TrimSpace(query))
	anyBuilding := building == "" || building == AllBuildings

	out := make([]models.Service, 0, len(services))
	for _, s := range services {
		if s.Building == nil {
			continue
		}
		if !anyBuilding && s.Building.Name != building {
			continue
		}
		if q != "" && !matches(s, q) {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Building.Name != out[j].Building.Name {
			return out[i].Building.Name < out[j].Building.Name
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func matches(s models.Service, q string) bool {
	if strings.Contains(strings.ToLower(s.Name), q) {
		return true
	}
	for _, spec := range s.Specialties {
		if strings.Contains(strings.ToLower(spec), q) {
			return true
		}
	}
	return false
}

// BuildingNames lists the distinct names of buildings that have services,
// sorted; these are the filter choices for Search.
func BuildingNames(services []models.Service) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range services {
		if s.Building == nil || seen[s.Building.Name] {
			continue
		}
		seen[s.Building.Name] = true
		names = append(names, s.Building.Name)
	}
	sort.Strings(names)
	return names
}
