package roster

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxMembers caps team size. The roster applies server events as they come;
// every place a user intends to grow a team checks CheckAddMember first.
const MaxMembers = 5

var ErrInvalidEmail = errors.New("invalid email")
var ErrInvalidTeamName = errors.New("invalid team name")
var ErrTeamFull = errors.New("team is full")
var ErrDuplicateMember = errors.New("member already on team")
var ErrUnknownMember = errors.New("no such member")
var ErrNoTeamSelected = errors.New("no team selected")
var ErrUnknownTeam = errors.New("no such team")

var validate = validator.New()

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateTeamName accepts printable ASCII that is not only whitespace.
func ValidateTeamName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidTeamName
	}
	if err := validate.Var(name, "printascii"); err != nil {
		return ErrInvalidTeamName
	}
	return nil
}

// CheckAddMember validates adding email to t before anything is sent.
func CheckAddMember(t Team, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if _, ok := t.Member(email); ok {
		return ErrDuplicateMember
	}
	if len(t.Members) >= MaxMembers {
		return ErrTeamFull
	}
	return nil
}

// CheckNewTeam validates a team about to be created with the given member emails.
func CheckNewTeam(name string, emails []string) error {
	if err := ValidateTeamName(name); err != nil {
		return err
	}
	if len(emails) > MaxMembers {
		return ErrTeamFull
	}
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		if err := ValidateEmail(e); err != nil {
			return err
		}
		if seen[e] {
			return ErrDuplicateMember
		}
		seen[e] = true
	}
	return nil
}
