package scheduling

import "strings"

const GeneralPhysician = "General Physician"

var problemSpecialties = []struct {
	problem   string
	specialty string
}{
	{"Heart", "Cardiology"},
	{"Fever", GeneralPhysician},
	{"Skin", "Dermatologist"},
	{"Diabetes", "Endocrinologist"},
	{"Bone", "Orthopedic"},
	{"Can't say", GeneralPhysician},
}

// ResolveSpecialty maps a problem category to the specialty that treats it.
// Matching is exact; anything unmapped goes to a general physician.
func ResolveSpecialty(problem string) string {
	problem = strings.TrimSpace(problem)
	for _, ps := range problemSpecialties {
		if ps.problem == problem {
			return ps.specialty
		}
	}
	return GeneralPhysician
}

// Problems lists the problem categories patients choose from.
func Problems() []string {
	out := make([]string, 0, len(problemSpecialties))
	for _, ps := range problemSpecialties {
		out = append(out, ps.problem)
	}
	return out
}
