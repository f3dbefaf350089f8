package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/safedev/accessgate/internal/api/middleware"
	"github.com/safedev/accessgate/internal/bootstrap"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	"github.com/safedev/accessgate/pkg/logger"
)

// session is an opened store plus services for one command invocation.
type session struct {
	store    *bootstrap.Store
	services *bootstrap.Services
}

// openSession is a seam so tests can point commands at an in-memory store.
var openSession = func(ctx context.Context) (*session, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(ctx, cfg)
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Service: "gatectl", Output: io.Discard})
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	services, err := bootstrap.NewServices(store, cfg, nil)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return &session{store: store, services: services}, nil
}

// withSession opens a session around fn and closes it afterwards.
func withSession(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c.Context)
		if err != nil {
			return err
		}
		defer s.store.Close(c.Context)
		return fn(c, s)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "gatectl",
		Usage:     "administer accessgate invites and accounts",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			inviteCommand(),
			userCommand(),
			tokenCommand(),
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Action: withSession(func(c *cli.Context, s *session) error {
					fmt.Fprintf(c.App.Writer, "schema up to date (%s)\n", s.store.Driver)
					return nil
				}),
			},
		},
	}
}

func inviteCommand() *cli.Command {
	daysFlag := &cli.IntFlag{Name: "days", Usage: "validity in days (0 for the default)"}
	return &cli.Command{
		Name:  "invite",
		Usage: "manage invite codes",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create one invite code",
				Flags: []cli.Flag{daysFlag},
				Action: withSession(func(c *cli.Context, s *session) error {
					inv, err := s.services.Invites.Create(c.Context, c.Int("days"))
					if err != nil {
						return err
					}
					printInvites(c.App.Writer, []*domain.Invite{inv})
					return nil
				}),
			},
			{
				Name:  "wave",
				Usage: "create a batch of invite codes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Usage: "number of codes", Required: true},
					daysFlag,
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					invites, err := s.services.Invites.CreateBatch(c.Context, c.Int("count"), c.Int("days"))
					if err != nil {
						return err
					}
					printInvites(c.App.Writer, invites)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "list all invite codes",
				Action: withSession(func(c *cli.Context, s *session) error {
					invites, err := s.services.Invites.List(c.Context)
					if err != nil {
						return err
					}
					printInvites(c.App.Writer, invites)
					return nil
				}),
			},
		},
	}
}

func userCommand() *cli.Command {
	uidAction := func(fn func(c *cli.Context, s *session, uid int64) error) cli.ActionFunc {
		return withSession(func(c *cli.Context, s *session) error {
			uid, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil || uid <= 0 {
				return fmt.Errorf("usage: %s <uid>", c.Command.HelpName)
			}
			return fn(c, s, uid)
		})
	}
	setStatus := func(status domain.UserStatus) cli.ActionFunc {
		return uidAction(func(c *cli.Context, s *session, uid int64) error {
			if err := s.services.Users.SetStatus(c.Context, uid, status); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "user %d is now %s\n", uid, status)
			return nil
		})
	}

	return &cli.Command{
		Name:  "user",
		Usage: "manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "redeem an invite and create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "invite", Required: true},
					&cli.StringFlag{Name: "external-id", Required: true},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					user, err := s.services.Registration.Register(c.Context, ports.RegisterInput{
						Username:   c.String("username"),
						Password:   c.String("password"),
						InviteCode: c.String("invite"),
						ExternalID: c.String("external-id"),
					})
					if err != nil {
						return err
					}
					printUsers(c.App.Writer, []*domain.User{user})
					return nil
				}),
			},
			{
				Name:      "get",
				Usage:     "show one account",
				ArgsUsage: "<uid>",
				Action: uidAction(func(c *cli.Context, s *session, uid int64) error {
					user, err := s.services.Users.Get(c.Context, uid)
					if err != nil {
						return err
					}
					printUsers(c.App.Writer, []*domain.User{user})
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "list all accounts",
				Action: withSession(func(c *cli.Context, s *session) error {
					users, err := s.services.Users.List(c.Context)
					if err != nil {
						return err
					}
					printUsers(c.App.Writer, users)
					return nil
				}),
			},
			{Name: "ban", Usage: "ban an account", ArgsUsage: "<uid>", Action: setStatus(domain.StatusBanned)},
			{Name: "unban", Usage: "lift a ban", ArgsUsage: "<uid>", Action: setStatus(domain.StatusActive)},
			{
				Name:      "reset-hwid",
				Usage:     "clear the bound hardware id",
				ArgsUsage: "<uid>",
				Action: uidAction(func(c *cli.Context, s *session, uid int64) error {
					if err := s.services.Users.ResetHWID(c.Context, uid); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "hwid cleared for user %d\n", uid)
					return nil
				}),
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "admin bearer tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "mint an admin token signed with JWT_SECRET",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner or support", Required: true},
					&cli.StringFlag{Name: "subject", Usage: "who the token is for", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.Context)
					if err != nil {
						return err
					}
					if cfg.JWTSecret == "" {
						return bootstrap.ErrMissingJWTSecret
					}
					tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), c.String("subject"), c.String("role"), c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, tok)
					return nil
				},
			},
		},
	}
}

func printInvites(w io.Writer, invites []*domain.Invite) {
	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tEXPIRES\tSTATUS")
	for _, inv := range invites {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", inv.Code, inv.ExpirationDate.UTC().Format(time.RFC3339), inv.Status(now))
	}
	_ = tw.Flush()
}

func printUsers(w io.Writer, users []*domain.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tUSERNAME\tSTATUS\tHWID\tREGISTERED\tLAST LOGIN")
	for _, u := range users {
		hwid := "not set"
		if u.HWID != nil {
			hwid = *u.HWID
		}
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.UID, u.Username, u.Status, hwid, u.RegisterDate.UTC().Format(time.RFC3339), last)
	}
	_ = tw.Flush()
}
