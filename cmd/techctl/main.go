// techctl is a command line companion for the support API: VIN checks,
// development tokens and a live view of tickets and chats.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/auth"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/config"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/vin"
)

const usage = `Usage: techctl <command> [flags]

Commands:
  vin <VIN>...   validate and normalize vehicle identification numbers
  token          mint a bearer token for local development
  watch          follow your tickets (or one ticket's chat) live
`

var errInvalidVIN = errors.New("one or more VINs are invalid")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger zerolog.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return pflag.ErrHelp
	}
	switch args[0] {
	case "vin":
		return runVIN(args[1:], out)
	case "token":
		return runToken(args[1:], out)
	case "watch":
		return runWatch(ctx, args[1:], out, logger)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runVIN(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("vin", pflag.ContinueOnError)
	quiet := flags.BoolP("quiet", "q", false, "only set the exit status")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("vin: at least one VIN is required")
	}
	var failed bool
	for _, raw := range flags.Args() {
		msg := vin.Validate(raw)
		if msg != "" {
			failed = true
		}
		if *quiet {
			continue
		}
		if msg != "" {
			fmt.Fprintf(out, "%s\tinvalid\t%s\n", raw, msg)
			continue
		}
		fmt.Fprintf(out, "%s\tok\t%s\n", raw, vin.Normalize(raw))
	}
	if failed {
		return errInvalidVIN
	}
	return nil
}

func runToken(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := pflag.NewFlagSet("token", pflag.ContinueOnError)
	user := flags.String("user", "", "profile id to put in the token")
	role := flags.String("role", models.RoleCustomer, "customer, technician or admin")
	ttl := flags.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := flags.String("secret", cfg.JWTSecret, "signing secret (default JWT_SECRET)")
	issuer := flags.String("issuer", cfg.JWTIssuer, "token issuer (default JWT_ISSUER)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return errors.New("token: --user is required")
	}
	switch *role {
	case models.RoleCustomer, models.RoleTechnician, models.RoleAdmin:
	default:
		return fmt.Errorf("token: unknown role %q", *role)
	}
	tok, err := auth.New(*secret, *issuer).Generate(*user, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}
