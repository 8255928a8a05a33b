package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

const testPassword = "Secr3t!pw"

type fakeQueue struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (q *fakeQueue) Enqueue(msg notify.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *fakeQueue) messages(kind notify.Kind) []notify.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []notify.Message
	for _, m := range q.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	svc   *Service
	store *store.Store
	queue *fakeQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tasksync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SeedRoles(context.Background()))

	q := &fakeQueue{}
	svc := New(Options{
		Store:         st,
		Tokens:        auth.NewTokenIssuer("0123456789abcdef0123", time.Hour),
		Hasher:        auth.NewHasher(bcrypt.MinCost),
		Queue:         q,
		ResetSecret:   "reset-secret",
		ResetTTL:      15 * time.Minute,
		ResetThrottle: time.Minute,
	})
	return &fixture{svc: svc, store: st, queue: q}
}

func (f *fixture) register(t *testing.T, name, email string) store.User {
	t.Helper()
	sess, err := f.svc.Register(context.Background(), name, email, testPassword)
	require.NoError(t, err)
	return sess.User
}

func ptr[T any](v T) *T { return &v }

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Register(ctx, " Ada ", "Ada@Example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, "Ada", sess.User.Name)
	require.Equal(t, "ada@example.com", sess.User.Email)
	require.NotEmpty(t, sess.Token)

	lists, err := f.svc.ListsForUser(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Equal(t, store.DefaultListName, lists[0].Name)

	user, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, user.ID)

	_, err = f.svc.Register(ctx, "Other", "ada@example.com", testPassword)
	require.ErrorIs(t, err, ErrConflict)

	login, err := f.svc.Login(ctx, "ADA@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, login.User.ID)

	_, err = f.svc.Login(ctx, "ada@example.com", "Wr0ng!pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name, email, password, field string
	}{
		{"", "a@example.com", testPassword, ""},
		{"Ada", "not-an-email", testPassword, "email"},
		{"Ada", "a@example.com", "short", "password"},
		{"Ada", "a@example.com", "alllowercase1!", "password"},
	}
	for _, tt := range tests {
		_, err := f.svc.Register(context.Background(), tt.name, tt.email, tt.password)
		require.ErrorIs(t, err, ErrInvalidInput)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, tt.field, verr.Field)
	}
}

func TestProfileUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ada := f.register(t, "Ada", "ada@example.com")
	f.register(t, "Grace", "grace@example.com")

	updated, err := f.svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Name: ptr("Ada L."), Email: ptr("ADA.L@example.com")})
	require.NoError(t, err)
	require.Equal(t, "Ada L.", updated.Name)
	require.Equal(t, "ada.l@example.com", updated.Email)

	_, err = f.svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Email: ptr("grace@example.com")})
	require.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Name: ptr("  ")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateProfilePicture(ctx, ada.ID, "ftp://example.com/a.png")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateProfilePicture(ctx, ada.ID, "/relative.png")
	require.ErrorIs(t, err, ErrInvalidInput)
	pic, err := f.svc.UpdateProfilePicture(ctx, ada.ID, "https://cdn.example.com/ada.png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/ada.png", pic.ProfilePicture)

	found, err := f.svc.SearchUsers(ctx, ada.ID, "example")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Grace", found[0].Name)
	_, err = f.svc.SearchUsers(ctx, ada.ID, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ada := f.register(t, "Ada", "ada@example.com")

	err := f.svc.ChangePassword(ctx, ada.ID, "Wr0ng!pass", "N3w!password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	err = f.svc.ChangePassword(ctx, ada.ID, testPassword, "weak")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.NoError(t, f.svc.ChangePassword(ctx, ada.ID, testPassword, "N3w!password"))

	_, err = f.svc.Login(ctx, "ada@example.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ada@example.com", "N3w!password")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com"))
	require.Empty(t, f.queue.messages(notify.KindPasswordReset))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ADA@example.com"))
	msgs := f.queue.messages(notify.KindPasswordReset)
	require.Len(t, msgs, 1)
	require.Equal(t, "ada@example.com", msgs[0].Recipient)
	code := msgs[0].Data["code"]
	require.Len(t, code, auth.ResetCodeDigits)

	// a repeat inside the throttle window sends nothing new
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	require.Len(t, f.queue.messages(notify.KindPasswordReset), 1)

	_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", wrongCode(code))
	require.ErrorIs(t, err, ErrResetCodeInvalid)

	token, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.NoError(t, err)

	// the code is single use
	_, _, err = f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, ErrResetCodeInvalid)

	// a reset token is not a session token
	_, err = f.svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "weak"), ErrInvalidInput)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "N3w!password"))
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "An0ther!pass"), ErrResetCodeInvalid)

	_, err = f.svc.Login(ctx, "ada@example.com", "N3w!password")
	require.NoError(t, err)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestVerifyResetCodeLockout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	code := f.queue.messages(notify.KindPasswordReset)[0].Data["code"]

	for i := 0; i < maxResetAttempts; i++ {
		_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", wrongCode(code))
		require.ErrorIs(t, err, ErrResetCodeInvalid)
	}
	_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, ErrResetCodeInvalid)
}

func TestVerifyResetCodeExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	code := f.queue.messages(notify.KindPasswordReset)[0].Data["code"]

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, ErrResetCodeInvalid)

	f.svc.now = time.Now
	_, _, err = f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.NoError(t, err, "an expired guess does not spend the code")
}

// barrierClock holds every caller of now until n callers have arrived, so
// that concurrent verifications all start from the same stored state.
func barrierClock(n int) func() time.Time {
	var arrived sync.WaitGroup
	arrived.Add(n)
	return func() time.Time {
		arrived.Done()
		arrived.Wait()
		return time.Now()
	}
}

func TestVerifyResetCodeConcurrentWrongGuessesKeepBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	code := f.queue.messages(notify.KindPasswordReset)[0].Data["code"]

	const guesses = 3 * maxResetAttempts
	f.svc.now = barrierClock(guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", wrongCode(code))
			assert.ErrorIs(t, err, ErrResetCodeInvalid)
		}()
	}
	wg.Wait()

	f.svc.now = time.Now
	_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, ErrResetCodeInvalid, "code must be locked after the attempt budget")
}

func TestVerifyResetCodeConcurrentCorrectGuessesIssueOneToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	code := f.queue.messages(notify.KindPasswordReset)[0].Data["code"]

	const callers = 8
	f.svc.now = barrierClock(callers)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
			if err == nil {
				mu.Lock()
				tokens++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrResetCodeInvalid)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, tokens)
}

func TestRequestPasswordResetStoreErrorDoesNotThrottle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.store.Close())

	require.Error(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	require.True(t, f.svc.resetRequests.markIfNew("ada@example.com"), "failed request left the address throttled")
}

func TestResetPasswordStoreErrorKeepsTokenUsable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	code := f.queue.messages(notify.KindPasswordReset)[0].Data["code"]
	token, _, err := f.svc.VerifyResetCode(ctx, "ada@example.com", code)
	require.NoError(t, err)

	require.NoError(t, f.store.Close())
	require.Error(t, f.svc.ResetPassword(ctx, token, "N3w!password"))

	claims, err := f.svc.tokens.ParseWithPurpose(token, auth.PurposePasswordReset)
	require.NoError(t, err)
	require.True(t, f.svc.usedResetToken.markIfNew(claims.ID), "failed reset burned the token")
}

func TestThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	th := newThrottle(time.Minute)
	th.now = func() time.Time { return now }

	require.True(t, th.markIfNew("a"))
	require.False(t, th.markIfNew("a"))
	require.True(t, th.markIfNew("b"))

	now = now.Add(2 * time.Minute)
	require.True(t, th.markIfNew("a"))

	disabled := newThrottle(0)
	require.True(t, disabled.markIfNew("x"))
	require.True(t, disabled.markIfNew("x"))
}
