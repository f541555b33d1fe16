package sessionmirror_test

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hllutils/sessionmirror"
	"github.com/hllutils/sessionmirror/internal/mock"
	"github.com/hllutils/sessionmirror/pkg/models"
)

// ExampleRuntime shows the full lifecycle: construct, start, submit,
// drain. The mock store stands in for PostgreSQL so the example is
// deterministic; production callers omit WithStore and let the runtime
// manage its own pool.
func ExampleRuntime() {
	store := mock.New()
	rt := sessionmirror.New(
		sessionmirror.Config{
			Mode: sessionmirror.ModeDual,
			URL:  "postgres://localhost:5432/hll",
		},
		sessionmirror.WithStore(store),
		sessionmirror.WithLogger(zerolog.Nop()),
	)
	if err := rt.Startup(context.Background()); err != nil {
		panic(err)
	}

	rt.ReplicateSession(models.SessionSnapshot{
		SessionID: 42,
		GuildID:   1,
		Name:      "Friday scrim",
	})

	// Submission is fire-and-forget; poll the store until the write lands.
	for len(store.CallsTo("UpsertSession")) == 0 {
		time.Sleep(time.Millisecond)
	}

	// Shutdown waits for in-flight work before closing the pool.
	if err := rt.Shutdown(context.Background()); err != nil {
		panic(err)
	}
	for _, c := range store.Calls() {
		fmt.Printf("%s %d\n", c.Method, c.ID)
	}
	// Output: UpsertSession 42
}

// ExampleConfigFromEnv wires the runtime from the process environment, the
// way a bot process boots it.
func ExampleConfigFromEnv() {
	cfg := sessionmirror.ConfigFromEnv()
	rt := sessionmirror.New(cfg)
	fmt.Println(rt.Mode())
	// Output: disabled
}
