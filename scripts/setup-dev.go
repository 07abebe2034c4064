package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"eventhub-ticketing/internal/config"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/middleware"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/storage"
)

func main() {
	compose := flag.Bool("compose", false, "Start kafka, redis and mysql with docker-compose first")
	flag.Parse()

	fmt.Println("Setting up Ticketing Service development environment")

	if *compose {
		if err := checkDocker(); err != nil {
			fmt.Printf("Docker issue detected: %v\n", err)
			fmt.Println("You can still run with DB_DRIVER=sqlite and KAFKA_MOCK_MODE=true")
			os.Exit(1)
		}
		fmt.Println("Docker is running, starting services...")
		cmd := exec.Command("docker-compose", "up", "-d", "kafka", "redis", "mysql")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Printf("Failed to start services: %v\n", err)
			os.Exit(1)
		}
	}

	config.LoadEnv("development", "")
	cfg := config.Load()
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "mysql" {
		cfg.Database.Driver = "sqlite"
	}

	log := logger.NewLogger()
	defer log.Close()

	if err := seed(context.Background(), cfg, log); err != nil {
		log.Fatal("SETUP", err.Error())
	}
}

func checkDocker() error {
	return exec.Command("docker", "info").Run()
}

// seed creates an event whose doors are already open, one free order for a
// demo attendee, and prints what a scanner needs to try a check-in.
func seed(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var (
		store storage.Store
		err   error
	)
	if cfg.Database.Driver == "sqlite" {
		store, err = storage.NewSQLiteStore(cfg.Database.SQLitePath, log)
	} else {
		store, err = storage.NewMySQLStore(cfg.Database, log)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	secret := cfg.Ticketing.SigningSecret
	if secret == "" {
		secret = "development-only-ticket-signing-secret"
	}
	signer, err := qrcode.NewSigner(secret)
	if err != nil {
		return err
	}

	suffix := time.Now().Format("20060102-150405")
	start := time.Now().UTC().Add(20 * time.Minute).Truncate(time.Minute)
	event := &models.Event{
		ID:          "evt-dev-" + suffix,
		OrganizerID: "org-dev",
		Title:       "Dev Launch Party",
		StartDate:   start,
		EndDate:     start.Add(3 * time.Hour),
		Status:      "published",
	}
	ticketType := &models.TicketType{ID: "tt-dev-" + suffix, EventID: event.ID, Name: "General Admission", Quantity: 100}
	attendee := &models.Attendee{ID: "usr-dev", Name: "Dev Attendee", Email: "attendee@example.com"}
	now := time.Now().UTC()
	order := &models.Order{
		ID:          "ord-dev-" + suffix,
		UserID:      attendee.ID,
		EventID:     event.ID,
		Status:      models.OrderCompleted,
		Items:       []models.OrderItem{{TicketTypeID: ticketType.ID, Quantity: 2}},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	if err := store.SaveEvent(ctx, event); err != nil {
		return err
	}
	if err := store.SaveTicketType(ctx, ticketType); err != nil {
		return err
	}
	if err := store.SaveAttendee(ctx, attendee); err != nil {
		return err
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		return err
	}

	orders := services.NewOrderConfirmationService(store, services.NewIssuer(store, signer, log), nil, nil, nil, nil, log)
	tickets, err := orders.IssueForOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	fmt.Printf("\nEvent %s starts %s\n", event.ID, event.StartDate.Format(time.RFC3339))
	for _, t := range tickets {
		fmt.Printf("  ticket %s  qrData=%s\n", t.ID, t.QRCodeData)
	}

	if cfg.Auth.JWTSecret != "" {
		token, err := middleware.NewTokenAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer).
			GenerateToken("org-dev", "organizer@example.com", services.RoleOrganizer, 12*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("\nOrganizer token (12h):\n  %s\n", token)
	}
	fmt.Println("\nSetup complete. Run: go run . -env development")
	return nil
}
