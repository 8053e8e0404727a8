package api

import (
	"log"
	"time"

	commandDelivery "voicecmd-backend/internal/command/delivery"
	commandRepo "voicecmd-backend/internal/command/repository"
	commandUsecasePkg "voicecmd-backend/internal/command/usecase"
	deviceDelivery "voicecmd-backend/internal/device/delivery"
	deviceRepo "voicecmd-backend/internal/device/repository"
	"voicecmd-backend/pkg/ai"
	"voicecmd-backend/pkg/config"
	"voicecmd-backend/pkg/metrics"
	"voicecmd-backend/pkg/transcribe"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Collaborators are the external services the pipeline writes to. Any of them
// may be nil, in which case the matching stage fails at run time.
type Collaborators struct {
	Calendar    commandUsecasePkg.CalendarInserter
	Tasks       commandUsecasePkg.TaskCreator
	Labels      commandUsecasePkg.LabelService
	Transcriber transcribe.Transcriber
}

type Handler struct {
	commandUsecase commandUsecasePkg.CommandUsecase
	commandHandler *commandDelivery.CommandHandler
	deviceHandler  *deviceDelivery.DeviceHandler
	settings       *SettingsHandler
	config         *config.Config
}

func NewHandler(cfg *config.Config, runRepository commandRepo.RunRepository, devices deviceRepo.DeviceRepository, collab Collaborators, m *metrics.Metrics) *Handler {
	// Ollama settings are read per completion so the settings API can change them
	settings := NewRuntimeSettings(cfg)

	// Initialize AI service with dynamic config getters for runtime updates
	aiCfg := ai.DynamicConfig{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GeminiModel:      cfg.GeminiModel,
		GetOllamaBaseURL: settings.OllamaBaseURL,
		GetOllamaModel:   settings.OllamaModel,
	}
	aiService, err := ai.NewCompletionServiceWithDynamicConfig(aiCfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v, falling back to Ollama", err)
		aiService = ai.NewOllamaServiceWithGetters(settings.OllamaBaseURL, settings.OllamaModel)
	} else {
		log.Printf("AI service initialized with provider: %s (dynamic config enabled)", cfg.AIProvider)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Printf("Warning: Invalid EVENT_TIMEZONE %q, using UTC: %v", cfg.EventTimezone, err)
		loc = time.UTC
	}

	// Empty model names let each provider use its configured default
	pipeline := commandUsecasePkg.NewPipelineController(commandUsecasePkg.PipelineDeps{
		Transcriber:  collab.Transcriber,
		Classifier:   commandUsecasePkg.NewIntentClassifier(aiService, ""),
		Extractor:    commandUsecasePkg.NewFieldExtractor(aiService, ""),
		Reconciler:   commandUsecasePkg.NewLabelReconciler(collab.Labels, cfg.LabelDedup, m),
		Dispatcher:   commandUsecasePkg.NewActionDispatcher(collab.Calendar, collab.Tasks, cfg.DispatchMaxRetries, cfg.DispatchBackoff, m),
		Location:     loc,
		ProjectID:    cfg.TodoistProjectID,
		StageTimeout: cfg.StageTimeout,
		Metrics:      m,
	})
	commandUc := commandUsecasePkg.NewCommandUsecase(pipeline, runRepository)
	log.Println("Command pipeline initialized")

	return &Handler{
		commandUsecase: commandUc,
		commandHandler: commandDelivery.NewCommandHandler(commandUc, cfg.TranscribeLanguage),
		deviceHandler:  deviceDelivery.NewDeviceHandler(devices),
		settings:       NewSettingsHandler(settings),
		config:         cfg,
	}
}

// CommandUsecase exposes the pipeline to the Pub/Sub job listener
func (h *Handler) CommandUsecase() commandUsecasePkg.CommandUsecase {
	return h.commandUsecase
}

// Router builds the gin engine with every route mounted
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-User-ID", "X-Requested-With"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	SetupRoutes(r, h.config, h.commandHandler, h.deviceHandler, h.settings)
	return r
}

func (h *Handler) Start(addr string) error {
	return h.Router().Run(addr)
}
