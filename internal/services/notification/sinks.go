package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// FeedSink publishes notifications on the user's private topic
type FeedSink struct {
	emitter *feed.Emitter
}

// NewFeedSink creates a FeedSink
func NewFeedSink(emitter *feed.Emitter) *FeedSink {
	return &FeedSink{emitter: emitter}
}

func (f *FeedSink) Deliver(ctx context.Context, n Notification) error {
	f.emitter.Emit(ctx, model.UserTopic(n.UserID), model.EventNotification, n.Payload())
	return nil
}

// sendEmailAPI is the subset of the SES client used here
type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailSink mails notifications through Amazon SES to users with an email address
type EmailSink struct {
	client    sendEmailAPI
	users     storage.UserStore
	fromEmail string
	logger    *slog.Logger
}

// NewEmailSink loads AWS configuration for the region and builds an SES client
func NewEmailSink(ctx context.Context, region, fromEmail string, users storage.UserStore, logger *slog.Logger) (*EmailSink, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newEmailSink(sesv2.NewFromConfig(cfg), fromEmail, users, logger), nil
}

func newEmailSink(client sendEmailAPI, fromEmail string, users storage.UserStore, logger *slog.Logger) *EmailSink {
	return &EmailSink{
		client:    client,
		users:     users,
		fromEmail: fromEmail,
		logger:    logger.With(slog.String("component", "email")),
	}
}

func (e *EmailSink) Deliver(ctx context.Context, n Notification) error {
	user, err := e.users.GetUser(ctx, n.UserID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("Kelime Oyunu <%s>", e.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(n.Title),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(n.Body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", user.Email, err)
	}
	e.logger.Info("notification emailed",
		slog.String("user_id", string(n.UserID)),
		slog.String("label", n.Label))
	return nil
}
