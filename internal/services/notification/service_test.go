package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/mocks"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage/memory"
	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

// recordingSink keeps every delivered notification
type recordingSink struct {
	mu   sync.Mutex
	got  []Notification
	fail error
}

func (r *recordingSink) Deliver(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.fail
}

func (r *recordingSink) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.got {
		out = append(out, n.Label)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	sink    *recordingSink
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.sink = &recordingSink{}
	s.service = New(s.storage, s.clock, testutil.NopLogger(), s.sink)
	s.ctx = context.Background()
}

func (s *ServiceSuite) enable(userID model.UserID) {
	s.Require().NoError(s.storage.SetPreference(s.ctx, userID, PrefEnabled, "true"))
}

func (s *ServiceSuite) TestNothingScheduledWhenDisabled() {
	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", time.Minute, LivesFull()))
	s.Empty(s.service.Pending("u1"))
	s.Equal(0, s.clock.PendingTimers())
}

func (s *ServiceSuite) TestRecoverRearmsDailyReminder() {
	s.enable("u1")
	s.enable("u2")
	s.Require().NoError(s.storage.SetPreference(s.ctx, "u3", PrefEnabled, "false"))

	n, err := s.service.Recover(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal([]string{LabelDailyReminder}, s.service.Pending("u1"))
	s.Equal([]string{LabelDailyReminder}, s.service.Pending("u2"))
	s.Empty(s.service.Pending("u3"))

	// Recovering twice keeps a single reminder per user
	_, err = s.service.Recover(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.clock.PendingTimers())
}

func (s *ServiceSuite) TestOneShotFiresOnce() {
	s.enable("u1")
	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", 90*time.Minute, LivesFull()))
	s.Equal([]string{LabelLives}, s.service.Pending("u1"))

	s.clock.Advance(89 * time.Minute)
	s.Empty(s.sink.labels())

	s.clock.Advance(time.Minute)
	s.Equal([]string{LabelLives}, s.sink.labels())
	s.Equal(model.UserID("u1"), s.sink.got[0].UserID)
	s.Empty(s.service.Pending("u1"))

	s.clock.Advance(24 * time.Hour)
	s.Len(s.sink.got, 1)
}

func (s *ServiceSuite) TestRescheduleReplacesPending() {
	s.enable("u1")
	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", 10*time.Minute, LivesFull()))
	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", 60*time.Minute, LivesFull()))

	due, ok := s.service.DueAt("u1", LabelLives)
	s.Require().True(ok)
	s.Equal(s.clock.Now().Add(time.Hour), due)

	s.clock.Advance(30 * time.Minute)
	s.Empty(s.sink.labels())
	s.clock.Advance(30 * time.Minute)
	s.Len(s.sink.got, 1)
}

func (s *ServiceSuite) TestCancelPreventsDelivery() {
	s.enable("u1")
	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", time.Minute, LivesFull()))
	s.service.Cancel("u1", LabelLives)

	s.clock.Advance(time.Hour)
	s.Empty(s.sink.labels())
}

func (s *ServiceSuite) TestRecurringRepeatsDaily() {
	s.enable("u1")
	s.Require().NoError(s.service.ScheduleRecurring(s.ctx, "u1", DailyReminderAt, DailyReminder()))

	due, ok := s.service.DueAt("u1", LabelDailyReminder)
	s.Require().True(ok)
	s.Equal(time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC), due)

	s.clock.Advance(7 * time.Hour)
	s.Equal([]string{LabelDailyReminder}, s.sink.labels())

	s.clock.Advance(24 * time.Hour)
	s.Len(s.sink.got, 2)
	s.Equal([]string{LabelDailyReminder}, s.service.Pending("u1"))
}

func (s *ServiceSuite) TestSetEnabledSchedulesAndCancels() {
	s.Require().NoError(s.service.SetEnabled(s.ctx, "u1", true))
	s.True(s.service.Enabled(s.ctx, "u1"))
	s.Equal([]string{LabelDailyReminder}, s.service.Pending("u1"))

	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", time.Minute, LivesFull()))
	s.Require().NoError(s.service.SetEnabled(s.ctx, "u1", false))
	s.False(s.service.Enabled(s.ctx, "u1"))
	s.Empty(s.service.Pending("u1"))

	s.clock.Advance(48 * time.Hour)
	s.Empty(s.sink.labels())
}

func (s *ServiceSuite) TestSinkFailureIsSwallowed() {
	s.enable("u1")
	s.sink.fail = errors.New("down")
	other := &recordingSink{}
	s.service = New(s.storage, s.clock, testutil.NopLogger(), s.sink, other)

	s.Require().NoError(s.service.ScheduleOneShot(s.ctx, "u1", 0, TournamentStart("t-1")))
	s.clock.Advance(0)

	s.Len(other.got, 1)
	s.Equal("t-1", other.got[0].Data["tournamentId"])
}

func (s *ServiceSuite) TestFeedSinkPublishesToUserTopic() {
	bus := feed.NewMemory(testutil.NopLogger())
	sub, err := bus.Subscribe(s.ctx, model.UserTopic("u1"))
	s.Require().NoError(err)
	defer sub.Close()

	sink := NewFeedSink(feed.NewEmitter(bus, s.clock, testutil.NopLogger()))
	n := GameInvite("Ayşe", "ABC123")
	n.UserID = "u1"
	s.Require().NoError(sink.Deliver(s.ctx, n))

	ev := <-sub.C
	s.Equal(model.EventNotification, ev.Type)
	payload, ok := ev.Payload.(model.NotificationPayload)
	s.Require().True(ok)
	s.Equal("Ayşe seni oyuna davet etti!", payload.Body)
	s.Equal("ABC123", payload.Data["roomCode"])
}

func TestDailyAtNext(t *testing.T) {
	at := DailyAt{Hour: 19}
	before := time.Date(2024, 3, 5, 18, 59, 0, 0, time.UTC)
	exact := time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)

	if got := at.Next(before); !got.Equal(exact) {
		t.Fatalf("expected %v, got %v", exact, got)
	}
	if got := at.Next(exact); !got.Equal(exact.AddDate(0, 0, 1)) {
		t.Fatalf("expected next day, got %v", got)
	}
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{}, f.err
}

func TestEmailSink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.SaveUser(ctx, &model.User{ID: "u1", Email: "ayse@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveUser(ctx, &model.User{ID: "u2"}); err != nil {
		t.Fatal(err)
	}

	ses := &fakeSES{}
	sink := newEmailSink(ses, "noreply@example.com", store, testutil.NopLogger())

	n := LivesFull()
	n.UserID = "u1"
	if err := sink.Deliver(ctx, n); err != nil {
		t.Fatal(err)
	}
	n.UserID = "u2"
	if err := sink.Deliver(ctx, n); err != nil {
		t.Fatal(err)
	}

	if len(ses.inputs) != 1 {
		t.Fatalf("expected one email, got %d", len(ses.inputs))
	}
	in := ses.inputs[0]
	if in.Destination.ToAddresses[0] != "ayse@example.com" {
		t.Fatalf("unexpected destination %v", in.Destination.ToAddresses)
	}
	if *in.Content.Simple.Subject.Data != "💖 Canların Yenilendi!" {
		t.Fatalf("unexpected subject %q", *in.Content.Simple.Subject.Data)
	}

	n.UserID = "missing"
	if err := sink.Deliver(ctx, n); !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
