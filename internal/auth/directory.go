package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Account is one configured operator login.
type Account struct {
	Username     string
	PasswordHash string
	Role         Role
}

// Directory holds the configured operators. It is read-only after
// construction and safe for concurrent use.
type Directory struct {
	operators map[string]*Operator

	// decoy is verified against for unknown usernames so both failure
	// paths cost one Argon2id derivation.
	decoy string
}

// NewDirectory validates accounts and returns a directory.
// Every problem is reported, joined with "; ".
func NewDirectory(accounts []Account) (*Directory, error) {
	d := &Directory{operators: make(map[string]*Operator, len(accounts))}

	var errs []string
	for i, a := range accounts {
		switch {
		case !IsValidUsername(a.Username):
			errs = append(errs, fmt.Sprintf("operators[%d]: invalid username %q", i, a.Username))
			continue
		case d.operators[a.Username] != nil:
			errs = append(errs, fmt.Sprintf("operators[%d]: duplicate username %q", i, a.Username))
			continue
		case !IsValidRole(a.Role):
			errs = append(errs, fmt.Sprintf("operators[%d]: invalid role %q", i, a.Role))
			continue
		}
		if _, err := decodePHC(a.PasswordHash); err != nil {
			errs = append(errs, fmt.Sprintf("operators[%d]: password_hash: %v", i, err))
			continue
		}

		d.operators[a.Username] = &Operator{Username: a.Username, Role: a.Role, PasswordHash: a.PasswordHash}
		if d.decoy == "" {
			d.decoy = a.PasswordHash
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccount, strings.Join(errs, "; "))
	}
	return d, nil
}

// Authenticate checks a username and password. Unknown usernames and wrong
// passwords both return ErrInvalidCredentials.
func (d *Directory) Authenticate(username, password string) (*Operator, error) {
	op, ok := d.operators[username]
	if !ok {
		if d.decoy != "" {
			_, _ = VerifyPassword(password, d.decoy) //nolint:errcheck // decoy hash was validated
		}
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, op.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	cp := *op
	return &cp, nil
}

// Lookup returns the operator with the given username.
func (d *Directory) Lookup(username string) (*Operator, error) {
	op, ok := d.operators[username]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	cp := *op
	return &cp, nil
}

// Usernames returns all configured usernames, sorted.
func (d *Directory) Usernames() []string {
	names := make([]string, 0, len(d.operators))
	for name := range d.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of operators.
func (d *Directory) Len() int {
	return len(d.operators)
}
