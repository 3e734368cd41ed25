// Package cli is a thin command-line front end over an opened store.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/store"
	"github.com/dmitrijs2005/sitestore/internal/users"
)

// Service is the part of *store.Store the commands use.
type Service interface {
	Status(ctx context.Context) (store.Status, error)
	Register(ctx context.Context, reg users.Registration) (*users.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*users.User, error)
	UpdateStats(ctx context.Context, id int64, delta users.StatsDelta) (bool, error)
	ListAll(ctx context.Context) ([]users.User, error)
}

var ErrUsage = errors.New("usage")

const usage = `usage: sitestore [flags] <command>

commands:
  status                                      show store status
  list                                        list users of the tenant
  register <username> [email]                 create a user (password is prompted)
  login <username|email>                      check credentials (password is prompted)
  stats <id> <score> <correct> <wrong> <streak>  record a finished game
`

type App struct {
	svc Service
	in  *bufio.Reader
	out io.Writer
}

func NewApp(svc Service, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, in: bufio.NewReader(in), out: out}
}

// Usage writes the command summary.
func (a *App) Usage() {
	fmt.Fprint(a.out, usage)
}

// Run executes one command. Unknown commands and bad arguments return an
// error wrapping ErrUsage.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command", ErrUsage)
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "status":
		return a.status(ctx)
	case "list":
		return a.list(ctx)
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "help":
		a.Usage()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) status(ctx context.Context) error {
	st, err := a.svc.Status(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(st)
}

func (a *App) list(ctx context.Context) error {
	list, err := a.svc.ListAll(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tSCORE\tGAMES\tBEST STREAK")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n",
			u.ID, u.Username, u.Role, u.Stats.TotalScore, u.Stats.GamesPlayed, u.Stats.BestStreak)
	}
	return tw.Flush()
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: register <username> [email]", ErrUsage)
	}
	reg := users.Registration{Username: args[0]}
	if len(args) == 2 {
		reg.Email = args[1]
	}

	pw, err := GetPassword(a.in, a.out)
	if err != nil {
		return err
	}
	reg.Password = pw

	u, err := a.svc.Register(ctx, reg)
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return fmt.Errorf("username %q is taken", args[0])
	case errors.Is(err, common.ErrDuplicateEmail):
		return fmt.Errorf("email %q is already registered", reg.Email)
	case err != nil:
		return err
	}
	return a.printJSON(u)
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <username|email>", ErrUsage)
	}
	pw, err := GetPassword(a.in, a.out)
	if err != nil {
		return err
	}

	u, err := a.svc.Authenticate(ctx, args[0], pw)
	if errors.Is(err, common.ErrInvalidCredentials) {
		return errors.New("invalid username or password")
	}
	if err != nil {
		return err
	}
	return a.printJSON(u)
}

func (a *App) stats(ctx context.Context, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("%w: stats <id> <score> <correct> <wrong> <streak>", ErrUsage)
	}
	nums := make([]int64, len(args))
	for i, s := range args {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrUsage, s)
		}
		nums[i] = n
	}

	ok, err := a.svc.UpdateStats(ctx, nums[0], users.StatsDelta{
		Score: nums[1], Correct: nums[2], Wrong: nums[3], Streak: nums[4],
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d not found", nums[0])
	}
	fmt.Fprintln(a.out, "stats updated")
	return nil
}
