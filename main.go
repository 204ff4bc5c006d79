package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/booking"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/bot"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/calendar"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/config"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

func main() {
	// Parse command-line flags
	debug := flag.Bool("debug", false, "Enable debug mode")
	token := flag.String("token", "", "Telegram bot token (or use BOT_TOKEN env var)")
	venueSeedPath := flag.String("venues", "", "Path to a YAML venue seed file (optional)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	botToken := *token
	if botToken == "" {
		botToken = os.Getenv("BOT_TOKEN")
	}
	if botToken == "" {
		log.Fatal("Telegram bot token is required. Provide it with -token flag or BOT_TOKEN environment variable")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/facility_booking.db"
		log.Printf("DB_PATH not set, using default: %s", dbPath)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize SQLite storage and seed the venue reference data.
	store, err := storage.NewSQLiteStore(dbPath, cfg.Location)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite storage at %s: %v", dbPath, err)
	}
	defer store.Close()

	seeds, err := config.LoadVenueSeeds(*venueSeedPath)
	if err != nil {
		log.Fatalf("Failed to load venue seeds: %v", err)
	}
	venues := make([]storage.Venue, 0, len(seeds))
	for _, s := range seeds {
		venues = append(venues, storage.Venue{
			Name:          s.Name,
			AllowedRoles:  s.AllowedRoles,
			AllowedCCAs:   s.AllowedCCAs,
			AllowedBlocks: s.AllowedBlocks,
		})
	}
	if err := store.SeedVenues(venues); err != nil {
		log.Fatalf("Failed to seed venues: %v", err)
	}

	// Calendar sync is optional: without CALENDAR_BASE_URL confirmed
	// bookings simply carry no event reference.
	var cal calendar.Service
	if baseURL := os.Getenv("CALENDAR_BASE_URL"); baseURL != "" {
		cal = calendar.NewClient(baseURL, os.Getenv("CALENDAR_ID"), os.Getenv("CALENDAR_TOKEN"), *debug)
	} else {
		log.Println("CALENDAR_BASE_URL not set, calendar sync disabled")
		cal = calendar.Disabled{}
	}

	sessions := bot.NewMemorySessionStore(cfg.SessionTTL)

	telegramBot, err := bot.New(botToken, store, sessions, cfg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// The bot doubles as the notifier, so the service is attached after
	// construction.
	svc := booking.New(store, cal, telegramBot, cfg)
	telegramBot.AttachService(svc)

	// Start the bot in a separate goroutine
	go func() {
		if err := telegramBot.Start(); err != nil {
			log.Fatalf("Failed to start bot: %v", err)
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	receivedSignal := <-sigCh
	log.Printf("Received signal: %v", receivedSignal)
	log.Println("Bot stopped")
}
