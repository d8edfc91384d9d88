package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/config"
	"github.com/iliyamo/koemail-admin/internal/database"
	"github.com/iliyamo/koemail-admin/internal/logging"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/repository"
)

const usage = `usage: mailctl <command> [flags]

commands:
  migrate                         apply pending schema migrations
  seed -f FILE                    apply a YAML seed file
  create-user -email E -name N    create a mailbox (password is prompted)
        [-admin] [-quota BYTES]
  reset-password -email E         set a new password (prompted)
`

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// env is what every command needs from the outside world.
type env struct {
	DB       *sql.DB
	Users    *repository.UserRepo
	Domains  *repository.DomainRepo
	Settings *repository.SettingRepo
	Hasher   *auth.Hasher
	Log      logging.Logger
}

func (e *env) Close() error { return e.DB.Close() }

// openEnv connects using the same environment variables as the server.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewHasher(auth.Config{BcryptCost: cfg.BcryptCost, HashWorkers: cfg.HashWorkers})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &env{
		DB:       db,
		Users:    repository.NewUserRepo(db),
		Domains:  repository.NewDomainRepo(db),
		Settings: repository.NewSettingRepo(db),
		Hasher:   hasher,
		Log:      logging.New(cfg.Env, os.Stderr),
	}, nil
}

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	open   func(ctx context.Context) (*env, error)

	lines *bufio.Reader
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return errors.New("no command given")
	}
	cmd, rest := args[0], args[1:]

	var fn func(context.Context, *env, []string) error
	switch cmd {
	case "migrate":
		fn = a.migrate
	case "seed":
		fn = a.seed
	case "create-user":
		fn = a.createUser
	case "reset-password":
		fn = a.resetPassword
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.errOut, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e, rest)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) migrate(ctx context.Context, e *env, args []string) error {
	if err := a.flags("migrate").Parse(args); err != nil {
		return err
	}
	if err := database.Migrate(ctx, e.DB); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}

func (a *app) seed(ctx context.Context, e *env, args []string) error {
	fs := a.flags("seed")
	file := fs.String("f", "", "YAML seed file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("seed: -f is required")
	}
	s, err := repository.LoadSeed(*file)
	if err != nil {
		return err
	}
	seeder := &repository.Seeder{Domains: e.Domains, Users: e.Users, Settings: e.Settings, Hasher: e.Hasher}
	res, err := seeder.Apply(ctx, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "seeded %d domains, %d users, %d settings\n", res.Domains, res.Users, res.Settings)
	return nil
}

func (a *app) createUser(ctx context.Context, e *env, args []string) error {
	fs := a.flags("create-user")
	email := fs.String("email", "", "mailbox address")
	name := fs.String("name", "", "display name")
	admin := fs.Bool("admin", false, "grant the admin role")
	quota := fs.Int64("quota", repository.DefaultQuota, "quota in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr := auth.NormalizeEmail(*email)
	if addr == "" || *name == "" {
		return errors.New("create-user: -email and -name are required")
	}

	pw, err := a.newPassword()
	if err != nil {
		return err
	}
	hash, err := e.Hasher.Hash(ctx, pw)
	if err != nil {
		return err
	}
	id, err := e.Users.Create(ctx, model.NewUser{Email: addr, Name: *name, PasswordHash: hash, Quota: *quota, Admin: *admin})
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return fmt.Errorf("create-user: %s already exists", addr)
	case errors.Is(err, repository.ErrDomainNotFound):
		return fmt.Errorf("create-user: domain %s is not registered", repository.DomainOf(addr))
	case err != nil:
		return err
	}
	e.Log.Info(ctx, "user created", "user_id", id, "admin", *admin)
	fmt.Fprintf(a.out, "created user %s (id %d)\n", addr, id)
	return nil
}

func (a *app) resetPassword(ctx context.Context, e *env, args []string) error {
	fs := a.flags("reset-password")
	email := fs.String("email", "", "mailbox address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr := auth.NormalizeEmail(*email)
	if addr == "" {
		return errors.New("reset-password: -email is required")
	}

	pw, err := a.newPassword()
	if err != nil {
		return err
	}
	hash, err := e.Hasher.Hash(ctx, pw)
	if err != nil {
		return err
	}
	if err := e.Users.SetPassword(ctx, addr, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("reset-password: no user %s", addr)
		}
		return err
	}
	e.Log.Info(ctx, "password reset", "email", addr)
	fmt.Fprintf(a.out, "password updated for %s\n", addr)
	return nil
}

// newPassword prompts twice and checks the two entries match.
func (a *app) newPassword() (string, error) {
	pw, err := a.readSecret("Password: ")
	if err != nil {
		return "", err
	}
	switch err := auth.CheckNewPassword(pw); {
	case errors.Is(err, auth.ErrWeakPassword):
		return "", fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", fmt.Errorf("password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	confirm, err := a.readSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

// readSecret reads without echo from a terminal, or one line from any
// other input so the command can be scripted.
func (a *app) readSecret(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.errOut, prompt)
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		return string(b), err
	}
	if a.lines == nil {
		a.lines = bufio.NewReader(a.in)
	}
	line, err := a.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
