package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/credential"
	"hrcore.io/internal/migrate"
	"hrcore.io/internal/store/pg"
	"hrcore.io/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		dsn   = flag.String("dsn", os.Getenv("HRCORE_PG_DSN"), "PostgreSQL DSN")
		email = flag.String("email", "", "Root account email (bootstrap only)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or HRCORE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|bootstrap]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), migrations.Files)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "bootstrap":
		err = bootstrap(ctx, store, *email)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// bootstrap provisions the first root account. The temporary password is
// printed once to stdout and must be changed on first login.
func bootstrap(ctx context.Context, store *pg.Store, email string) error {
	if email == "" {
		return fmt.Errorf("bootstrap requires -email")
	}
	secret := os.Getenv("HRCORE_AUTH_SECRET")
	if secret == "" {
		// Bootstrap issues no session tokens, so any non-empty value works.
		secret = "bootstrap"
	}
	svc, err := auth.NewService(store.Users(), credential.NewService(), secret,
		auth.WithNotifier(consoleNotifier{}))
	if err != nil {
		return err
	}
	user, err := svc.Provision(ctx, auth.NewAccount{Email: email, Role: authz.RoleRoot})
	if err != nil {
		return err
	}
	fmt.Printf("root account %s created (id %s)\n", user.Email, user.ID)
	return nil
}

// consoleNotifier prints credentials to stdout for operator hand-off.
type consoleNotifier struct{}

func (consoleNotifier) PasswordReset(_ context.Context, email, rawToken string) error {
	fmt.Printf("reset token for %s: %s\n", email, rawToken)
	return nil
}

func (consoleNotifier) TemporaryPassword(_ context.Context, email, rawPassword string) error {
	fmt.Printf("temporary password for %s: %s\n", email, rawPassword)
	return nil
}
