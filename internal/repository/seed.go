package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/koemail-admin/internal/model"
)

// Seed is the YAML document accepted by the seeder:
//
//	domains:
//	  - domain: example.com
//	    description: Primary domain
//	users:
//	  - email: admin@example.com
//	    name: Admin
//	    password: change-me
//	    admin: true
//	settings:
//	  - key: spam_threshold
//	    value: "6.0"
type Seed struct {
	Domains []struct {
		Domain      string `yaml:"domain"`
		Description string `yaml:"description"`
	} `yaml:"domains"`
	Users []struct {
		Email    string `yaml:"email"`
		Name     string `yaml:"name"`
		Password string `yaml:"password"`
		Admin    bool   `yaml:"admin"`
		Quota    int64  `yaml:"quota"`
	} `yaml:"users"`
	Settings []struct {
		Key   string `yaml:"key"`
		Value string `yaml:"value"`
	} `yaml:"settings"`
}

// ParseSeed decodes a seed document, rejecting unknown fields.
func ParseSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Seed
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// LoadSeed reads and parses the seed file at path.
func LoadSeed(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSeed(f)
}

// PasswordHasher is satisfied by *auth.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

// SeedResult counts the rows the seeder created.
type SeedResult struct {
	Domains  int
	Users    int
	Settings int
}

// Seeder applies a Seed. It is idempotent: existing domains and users are
// left alone, settings are overwritten.
type Seeder struct {
	Domains  *DomainRepo
	Users    *UserRepo
	Settings *SettingRepo
	Hasher   PasswordHasher
}

func (s *Seeder) Apply(ctx context.Context, seed *Seed) (SeedResult, error) {
	var res SeedResult
	for _, d := range seed.Domains {
		_, err := s.Domains.Create(ctx, d.Domain, d.Description)
		switch {
		case err == nil:
			res.Domains++
		case errors.Is(err, ErrDomainExists):
		default:
			return res, fmt.Errorf("seed domain %s: %w", d.Domain, err)
		}
	}

	for _, u := range seed.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if u.Password == "" {
			return res, fmt.Errorf("seed user %s: password is required", email)
		}
		hash, err := s.Hasher.Hash(ctx, u.Password)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", email, err)
		}
		_, err = s.Users.Create(ctx, model.NewUser{
			Email: email, Name: u.Name, PasswordHash: hash, Quota: u.Quota, Admin: u.Admin,
		})
		switch {
		case err == nil:
			res.Users++
		case errors.Is(err, ErrEmailExists):
		default:
			return res, fmt.Errorf("seed user %s: %w", email, err)
		}
	}

	for _, st := range seed.Settings {
		if err := s.Settings.UpdateValue(ctx, st.Key, st.Value); err != nil {
			return res, fmt.Errorf("seed setting %s: %w", st.Key, err)
		}
		res.Settings++
	}
	return res, nil
}
