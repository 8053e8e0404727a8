package main

import (
	"context"
	"log"
	"strings"

	api "voicecmd-backend/cmd/api"
	commanddomain "voicecmd-backend/internal/command/domain"
	commandRepo "voicecmd-backend/internal/command/repository"
	devicedomain "voicecmd-backend/internal/device/domain"
	deviceRepo "voicecmd-backend/internal/device/repository"
	"voicecmd-backend/internal/notification"
	"voicecmd-backend/pkg/calendar"
	"voicecmd-backend/pkg/config"
	"voicecmd-backend/pkg/database"
	"voicecmd-backend/pkg/fcm"
	"voicecmd-backend/pkg/metrics"
	"voicecmd-backend/pkg/todoist"
	"voicecmd-backend/pkg/transcribe"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&commanddomain.CommandRun{}, &devicedomain.DeviceToken{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	runRepository := commandRepo.NewGormRunRepository(db)
	deviceRepository := deviceRepo.NewDeviceRepository(db)

	m := metrics.New(nil)
	ctx := context.Background()

	var collab api.Collaborators

	// Google Calendar (optional, event commands fail at dispatch without it)
	calendarService, err := calendar.NewService(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleTokenFile, cfg.CalendarID)
	if err != nil {
		log.Printf("[WARN] Google Calendar disabled: %v", err)
	} else {
		collab.Calendar = calendarService
		log.Printf("[DEBUG] Google Calendar client initialized for calendar %s", cfg.CalendarID)
	}

	// Todoist (optional, task commands fail at reconciliation without it)
	if cfg.TodoistAPIToken != "" {
		todoistClient := todoist.NewClient(cfg.TodoistBaseURL, cfg.TodoistAPIToken)
		collab.Tasks = todoistClient
		collab.Labels = todoistClient
	} else {
		log.Printf("[WARN] TODOIST_API_TOKEN not set, task commands disabled")
	}

	// Speech to text (optional, voice uploads fail at transcription without it)
	if cfg.TranscribeAPIKey != "" {
		collab.Transcriber = transcribe.NewWhisperService(cfg.TranscribeBaseURL, cfg.TranscribeAPIKey, cfg.TranscribeModel)
	} else {
		log.Printf("[WARN] TRANSCRIBE_API_KEY not set, voice uploads disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(cfg, runRepository, deviceRepository, collab, m)

	// Initialize voice job listener (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "voice-commands"
		}
		log.Printf("[DEBUG] Using topic name: %s", topicName)

		// FCM is optional, runs still happen without a reply channel
		var sender notification.ReplySender
		if cfg.FirebaseCredentials != "" {
			fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
			if err != nil {
				log.Printf("[WARN] Failed to initialize FCM client (push replies disabled): %v", err)
			} else {
				sender = fcmClient
			}
		} else {
			log.Printf("[DEBUG] No Firebase credentials configured, FCM disabled")
		}

		notifService, err := notification.NewService(ctx, cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, handler.CommandUsecase(), deviceRepository, sender, cfg.TranscribeLanguage)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize voice job listener: %v", err)
		} else {
			defer notifService.Close()
			go notifService.Start(ctx)
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, voice job listener disabled")
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
