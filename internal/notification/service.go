package notification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/internal/command/usecase"
	devicerepo "voicecmd-backend/internal/device/repository"
	"voicecmd-backend/pkg/fcm"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// VoiceJob is one command published on the jobs topic
type VoiceJob struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Language    string `json:"language,omitempty"`
	ReplyToken  string `json:"reply_token,omitempty"`
}

// ReplySender pushes the reply of a run to devices
type ReplySender interface {
	SendToDevice(ctx context.Context, token string, notification fcm.NotificationData) error
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

type Service struct {
	pubsubClient    *pubsub.Client
	commands        usecase.CommandUsecase
	devices         devicerepo.DeviceRepository
	sender          ReplySender
	topicName       string
	subName         string
	defaultLanguage string
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, commands usecase.CommandUsecase, devices devicerepo.DeviceRepository, sender ReplySender, defaultLanguage string) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	s := NewJobHandler(commands, devices, sender, defaultLanguage)
	s.pubsubClient = client
	s.topicName = topicName
	s.subName = topicName + "-sub" // Convention: topic-sub
	return s, nil
}

// NewJobHandler builds a Service without a Pub/Sub connection, for handling decoded jobs
func NewJobHandler(commands usecase.CommandUsecase, devices devicerepo.DeviceRepository, sender ReplySender, defaultLanguage string) *Service {
	return &Service{
		commands:        commands,
		devices:         devices,
		sender:          sender,
		defaultLanguage: defaultLanguage,
	}
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting voice job listener with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		// ack deadline covers a full run
		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 5 * time.Minute,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for voice jobs on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.HandleJob(ctx, msg.Data); err != nil {
			log.Printf("[PubSub] Dropping message %s: %v", msg.ID, err)
		}
		// always ack, a redelivered job would dispatch twice
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

// DecodeJob parses and validates one job message
func DecodeJob(data []byte) (*VoiceJob, []byte, error) {
	var job VoiceJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, nil, fmt.Errorf("invalid job payload: %w", err)
	}
	if strings.TrimSpace(job.UserID) == "" {
		return nil, nil, errors.New("job has no user_id")
	}

	var audio []byte
	if job.AudioBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(job.AudioBase64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid audio_base64: %w", err)
		}
		audio = decoded
	}
	if strings.TrimSpace(job.Text) == "" && len(audio) == 0 {
		return nil, nil, errors.New("job has neither text nor audio")
	}
	return &job, audio, nil
}

// HandleJob runs one job and pushes its reply. Errors are only returned for
// jobs that could not be run at all.
func (s *Service) HandleJob(ctx context.Context, data []byte) error {
	job, audio, err := DecodeJob(data)
	if err != nil {
		return err
	}

	language := job.Language
	if language == "" {
		language = s.defaultLanguage
	}

	outcome, err := s.commands.Execute(ctx, usecase.CommandInput{
		UserID:   job.UserID,
		Source:   usecase.SourcePubSub,
		Text:     job.Text,
		Audio:    audio,
		Filename: job.Filename,
		Language: language,
	})
	if err != nil {
		return err
	}
	log.Printf("[PubSub] Job for user %s finished as %s (run %s)", job.UserID, outcome.State, outcome.RunID)

	s.reply(ctx, job, outcome)
	return nil
}

func (s *Service) reply(ctx context.Context, job *VoiceJob, outcome *domain.RunOutcome) {
	if s.sender == nil {
		log.Printf("[FCM] Reply channel not configured, run %s reply not pushed", outcome.RunID)
		return
	}

	n := fcm.NotificationData{
		Title: "Comando vocale",
		Body:  outcome.Reply,
		Data: map[string]string{
			"type":   "command_reply",
			"run_id": outcome.RunID,
			"state":  string(outcome.State),
		},
	}
	if outcome.Result != nil && outcome.Result.Link != "" {
		n.Data["link"] = outcome.Result.Link
	}

	if job.ReplyToken != "" {
		if err := s.sender.SendToDevice(ctx, job.ReplyToken, n); err != nil {
			log.Printf("[FCM] Error sending reply for run %s: %v", outcome.RunID, err)
		}
		return
	}

	if s.devices == nil {
		return
	}
	tokens, err := s.devices.GetTokensByUserID(job.UserID)
	if err != nil {
		log.Printf("[FCM] Error getting device tokens for user %s: %v", job.UserID, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("[FCM] No devices for user %s, skipping reply", job.UserID)
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}
	failed, err := s.sender.SendToDevices(ctx, tokenStrings, n)
	if err != nil {
		log.Printf("[FCM] Error sending reply for run %s: %v", outcome.RunID, err)
		return
	}
	if len(failed) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failed))
		if err := s.devices.DeleteTokens(failed); err != nil {
			log.Printf("[FCM] Failed to delete stale tokens: %v", err)
		}
	}
}
