// Package mock provides an in-memory Store double for runtime tests: it
// records every call in order and can fail or block selected methods.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hllutils/sessionmirror/pkg/models"
)

// ErrInjected is returned by methods with scripted failures remaining.
var ErrInjected = errors.New("mock: injected failure")

var errNotConnected = errors.New("mock: store is not connected")

// Call is one recorded store operation.
type Call struct {
	Method string
	// ID is the session/credential/api-key id the call addressed, when any.
	ID int64
	// Month is set for CreatePartition calls.
	Month time.Time
	// Logs is set for InsertLogs calls.
	Logs []models.LogLine
}

// Store implements the runtime's Store interface.
type Store struct {
	// OnCall, when set, runs before a call is recorded and may fail or
	// block it. Useful for stuck-task and ordering tests.
	OnCall func(c Call) error

	mu        sync.Mutex
	connected bool
	calls     []Call
	failures  map[string]int
	attempts  map[string]int
}

func New() *Store {
	return &Store{
		failures: make(map[string]int),
		attempts: make(map[string]int),
	}
}

// FailNext makes the next n calls to method return ErrInjected.
func (s *Store) FailNext(method string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = n
}

// Calls returns a copy of all recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Attempts counts every invocation of method, failed ones included.
func (s *Store) Attempts(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[method]
}

// CallsTo returns the recorded calls to one method.
func (s *Store) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) record(c Call) error {
	s.mu.Lock()
	s.attempts[c.Method]++
	if !s.connected {
		s.mu.Unlock()
		return errNotConnected
	}
	hook := s.OnCall
	if n := s.failures[c.Method]; n > 0 {
		s.failures[c.Method] = n - 1
		s.mu.Unlock()
		return ErrInjected
	}
	s.mu.Unlock()

	if hook != nil {
		if err := hook(c); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	return nil
}

func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Store) UpsertSession(ctx context.Context, rec models.SessionSnapshot) error {
	return s.record(Call{Method: "UpsertSession", ID: rec.SessionID})
}

func (s *Store) UpsertCredential(ctx context.Context, rec models.CredentialSnapshot) error {
	return s.record(Call{Method: "UpsertCredential", ID: rec.ID})
}

func (s *Store) UpsertAPIKey(ctx context.Context, rec models.APIKeySnapshot) error {
	return s.record(Call{Method: "UpsertAPIKey", ID: rec.ID})
}

func (s *Store) InsertLogs(ctx context.Context, sessionID int64, logs []models.LogLine) error {
	return s.record(Call{Method: "InsertLogs", ID: sessionID, Logs: models.CloneLogs(logs)})
}

func (s *Store) CreatePartition(ctx context.Context, monthStart time.Time) error {
	return s.record(Call{Method: "CreatePartition", Month: monthStart})
}

func (s *Store) DeleteSession(ctx context.Context, sessionID int64) error {
	return s.record(Call{Method: "DeleteSession", ID: sessionID})
}

func (s *Store) MarkSessionDeleted(ctx context.Context, sessionID int64, deletedAt *time.Time) error {
	return s.record(Call{Method: "MarkSessionDeleted", ID: sessionID})
}

func (s *Store) DeleteCredential(ctx context.Context, credentialID int64) error {
	return s.record(Call{Method: "DeleteCredential", ID: credentialID})
}

func (s *Store) DeleteAPIKey(ctx context.Context, apiKeyID int64) error {
	return s.record(Call{Method: "DeleteAPIKey", ID: apiKeyID})
}

func (s *Store) PurgeSessionLogs(ctx context.Context, sessionID int64) (int64, error) {
	if err := s.record(Call{Method: "PurgeSessionLogs", ID: sessionID}); err != nil {
		return 0, err
	}
	return 0, nil
}
