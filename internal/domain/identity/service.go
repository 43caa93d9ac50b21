// Package identity authenticates users and creates accounts: patient
// signup, doctor onboarding by the admin, and the seed accounts of a fresh
// clinic.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

const (
	DemoPatientUsername = "test_patient"
	DemoPatientPassword = "patientpass"

	// bcrypt ignores nothing past this; it rejects longer input outright.
	maxPasswordBytes = 72
)

type Service struct {
	store    clinic.Store
	logger   zerolog.Logger
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(store clinic.Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger, hashCost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) SetHashCost(cost int) {
	s.hashCost = cost
}

func checkPassword(password string) error {
	switch {
	case password == "":
		return clinic.Invalid("password", "is required")
	case len(password) > maxPasswordBytes:
		return clinic.Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", clinic.Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// dummy returns a hash at the service's cost that unknown usernames are
// compared against, so both login failures take as long.
func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user"), s.hashCost)
	})
	return s.dummyHash
}

// Login checks the credentials and returns the caller's session. Unknown
// users and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (auth.Session, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return auth.Session{}, fmt.Errorf("load document: %w", err)
	}

	name := clinic.NormalizeUsername(username)
	user, ok := doc.Users.Get(name)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return auth.Session{}, clinic.ErrInvalidCredentials
	}
	if password == "" {
		return auth.Session{}, clinic.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return auth.Session{}, clinic.ErrInvalidCredentials
	}
	return auth.Session{Username: name, Role: user.Role, EntityID: user.ID}, nil
}

// Signup registers a patient: a Patient user and a Patient record sharing a
// fresh id.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*clinic.Patient, auth.Session, error) {
	name := clinic.NormalizeUsername(req.Username)
	switch {
	case name == "":
		return nil, auth.Session{}, clinic.Invalid("username", "is required")
	case strings.ContainsAny(name, " \t\n"):
		return nil, auth.Session{}, clinic.Invalid("username", "must not contain whitespace")
	case strings.TrimSpace(req.Name) == "":
		return nil, auth.Session{}, clinic.Invalid("name", "is required")
	case req.Age < 0:
		return nil, auth.Session{}, clinic.Invalid("age", "must not be negative")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, auth.Session{}, err
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, auth.Session{}, err
	}

	var patient clinic.Patient
	err = clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		if doc.Users.Has(name) {
			return clinic.ErrUsernameTaken
		}
		patient = clinic.Patient{
			ID:     doc.NewID(),
			Name:   strings.TrimSpace(req.Name),
			Age:    req.Age,
			Gender: strings.TrimSpace(req.Gender),
		}
		doc.Patients.Set(patient.ID, patient)
		doc.Users.Set(name, clinic.User{Password: hashed, Role: clinic.RolePatient, ID: patient.ID})
		return nil
	})
	if err != nil {
		return nil, auth.Session{}, err
	}

	s.logger.Info().Str("username", name).Str("patient_id", patient.ID).Msg("patient signed up")
	return &patient, auth.Session{Username: name, Role: clinic.RolePatient, EntityID: patient.ID}, nil
}

// AddDoctor onboards a doctor. Only the admin may call it.
func (s *Service) AddDoctor(ctx context.Context, sess auth.Session, req AddDoctorRequest) (*DoctorAccount, error) {
	if !sess.Is(clinic.RoleAdmin) {
		return nil, clinic.ErrForbidden
	}
	name := strings.Join(strings.Fields(req.Name), " ")
	specialty := strings.TrimSpace(req.Specialty)
	switch {
	case name == "":
		return nil, clinic.Invalid("name", "is required")
	case specialty == "":
		return nil, clinic.Invalid("specialty", "is required")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	username := DoctorUsername(name)
	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	var doctor clinic.Doctor
	err = clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		if doc.Users.Has(username) {
			return clinic.ErrUsernameTaken
		}
		doctor = clinic.Doctor{ID: doc.NewID(), Name: name, Specialty: specialty}
		doc.Doctors.Set(doctor.ID, doctor)
		doc.Users.Set(username, clinic.User{Password: hashed, Role: clinic.RoleDoctor, ID: doctor.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor_id", doctor.ID).
		Str("username", username).
		Str("specialty", specialty).
		Msg("doctor added")
	return &DoctorAccount{Doctor: doctor, Username: username}, nil
}

// ListDoctors returns every doctor in the order they were added.
func (s *Service) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc.Doctors.Values(), nil
}

// EnsureAdmin creates the admin user when it does not exist. An existing
// account is left untouched, password included.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	name := clinic.NormalizeUsername(username)
	if name == "" || password == "" {
		return false, clinic.Invalid("admin", "username and password are required")
	}
	if err := checkPassword(password); err != nil {
		return false, err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return false, err
	}

	created := false
	err = clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		if u, ok := doc.Users.Get(name); ok {
			if u.Role != clinic.RoleAdmin {
				return fmt.Errorf("%w: %q is a %s account", clinic.ErrUsernameTaken, name, u.Role)
			}
			return errUnchanged
		}
		doc.Users.Set(name, clinic.User{Password: hashed, Role: clinic.RoleAdmin})
		created = true
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info().Str("username", name).Msg("admin account created")
	return created, nil
}

// SeedDemoPatient creates the test_patient account used for demos.
func (s *Service) SeedDemoPatient(ctx context.Context) (bool, error) {
	_, _, err := s.Signup(ctx, SignupRequest{
		Username: DemoPatientUsername,
		Password: DemoPatientPassword,
		Name:     "Test Patient",
		Age:      35,
		Gender:   "M",
	})
	if errors.Is(err, clinic.ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// errUnchanged aborts an Update without saving.
var errUnchanged = errors.New("unchanged")
