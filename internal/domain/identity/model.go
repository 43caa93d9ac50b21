package identity

import (
	"strings"

	"github.com/clinic/frontdesk/internal/domain/clinic"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

type AddDoctorRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Password  string `json:"password"`
}

// DoctorAccount is a newly added doctor together with the login the admin
// hands over.
type DoctorAccount struct {
	Doctor   clinic.Doctor `json:"doctor"`
	Username string        `json:"username"`
}

// DoctorUsername derives the login for a doctor: the name lower-cased with
// its words joined by "_". "Jane Doe" becomes "jane_doe".
func DoctorUsername(name string) string {
	return clinic.NormalizeUsername(strings.Join(strings.Fields(name), "_"))
}
