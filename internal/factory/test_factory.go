package factory

import (
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/mocks"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
	"github.com/mcoot/kelimeoyunu/internal/storage/memory"
	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// In-process backends for inspection
	MemoryStorage *memory.Storage
	MemoryFeed    *feed.MemoryFeed
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The built-in word list is loaded.
func NewTestApp() *TestApp {
	store := memory.New()
	logger := testutil.NopLogger()
	bus := feed.NewMemory(logger)
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, bus, mockClock, mockRandom, wiring{auth: auth.DefaultConfig()}, logger)
	if err := app.Lexicon.LoadDefault(); err != nil {
		panic(err)
	}

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MemoryStorage: store,
		MemoryFeed:    bus,
	}
}
