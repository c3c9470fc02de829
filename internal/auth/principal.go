package auth

import "fmt"

const (
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

// Principal is the authenticated caller: either a Professor or a Student.
type Principal interface {
	UserID() string
	Role() string
	principal()
}

// Professor owns classes and mints sessions.
type Professor struct{ ID string }

// Student checks in and reads personal analytics.
type Student struct{ ID string }

func (p Professor) UserID() string { return p.ID }
func (p Professor) Role() string   { return RoleProfessor }
func (Professor) principal()       {}

func (s Student) UserID() string { return s.ID }
func (s Student) Role() string   { return RoleStudent }
func (Student) principal()       {}

// PrincipalFromClaims dispatches the role claim into a Principal variant.
func PrincipalFromClaims(c Claims) (Principal, error) {
	switch c.Role {
	case RoleProfessor:
		return Professor{ID: c.Subject}, nil
	case RoleStudent:
		return Student{ID: c.Subject}, nil
	default:
		return nil, fmt.Errorf("auth: unknown role %q", c.Role)
	}
}
