package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/dice-quest/internal/apperrors"
	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/server/storage"
	"github.com/palemoky/dice-quest/internal/testutil"
)

const testRollDelay = 20 * time.Millisecond

// fixedRNG 生成全普通格棋盘，每次掷出相同点数
type fixedRNG struct{ roll int }

func (r fixedRNG) Float64() float64 { return 0 }
func (r fixedRNG) IntN(int) int     { return r.roll - 1 }

func newTestManager(t *testing.T, opts Options) *SessionManager {
	t.Helper()
	if opts.RollDelay == 0 {
		opts.RollDelay = testRollDelay
	}
	if opts.NewRNG == nil {
		opts.NewRNG = func() board.RNG { return fixedRNG{roll: 3} }
	}
	sm := NewSessionManager(storage.NewRedisStore(nil), storage.NewLeaderboardManager(nil), opts)
	t.Cleanup(sm.Shutdown)
	return sm
}

func lastState(t *testing.T, c *testutil.SimpleClient) *protocol.GameStatePayload {
	t.Helper()
	msgs := c.MessagesOfType(protocol.MsgGameState)
	require.NotEmpty(t, msgs)
	state, err := codec.ParsePayload[protocol.GameStatePayload](msgs[len(msgs)-1])
	require.NoError(t, err)
	return state
}

// startTwoPlayerGame 创建两人会话并开始
func startTwoPlayerGame(t *testing.T, sm *SessionManager) (code string, host, guest *testutil.SimpleClient) {
	t.Helper()
	ctx := context.Background()

	host = testutil.NewSimpleClient("c1", "")
	guest = testutil.NewSimpleClient("c2", "")

	code, _, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)
	guestID, err := sm.JoinGame(ctx, guest, code, "Bob")
	require.NoError(t, err)
	require.NoError(t, sm.ToggleReady(ctx, code, guestID))
	require.NoError(t, sm.StartGame(ctx, code))
	return code, host, guest
}

func TestCreateGame(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	client := testutil.NewSimpleClient("c1", "")

	code, playerID, err := sm.CreateGame(context.Background(), client, "Alice")
	require.NoError(t, err)

	assert.Len(t, code, sessionCodeLength)
	for _, ch := range code {
		assert.Contains(t, sessionCodeChars, string(ch))
	}
	assert.Equal(t, code, client.GetSession())
	assert.Equal(t, playerID, client.GetPlayerID())
	assert.Equal(t, "Alice", client.GetName())

	msgs := client.SentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.MsgPlayerID, msgs[0].Type)
	assert.Equal(t, protocol.MsgGameState, msgs[1].Type)

	id, err := codec.ParsePayload[string](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, playerID, *id)

	state := lastState(t, client)
	assert.Equal(t, code, state.SessionCode)
	assert.Equal(t, "lobby", state.Phase)
	require.Len(t, state.Players, 1)
	assert.True(t, state.Players[0].IsHost)
	assert.True(t, state.Players[0].IsReady)
	assert.Empty(t, state.Board)
	assert.Nil(t, state.PendingRoll)
}

func TestCreateGame_UniqueCodes(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	seen := make(map[string]bool)
	for range 200 {
		code, _, err := sm.CreateGame(context.Background(), testutil.NewSimpleClient("c", ""), "p")
		require.NoError(t, err)
		assert.False(t, seen[code])
		seen[code] = true
	}
	assert.Equal(t, 200, sm.GetSessionCount())
}

func TestJoinGame(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{MaxPlayers: 2})
	ctx := context.Background()
	host := testutil.NewSimpleClient("c1", "")
	code, _, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)

	_, err = sm.JoinGame(ctx, testutil.NewSimpleClient("c2", ""), "NOPE00", "Bob")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.False(t, apperrors.IsSilent(err))

	guest := testutil.NewSimpleClient("c2", "")
	guestID, err := sm.JoinGame(ctx, guest, code, "Bob")
	require.NoError(t, err)
	assert.Equal(t, guestID, guest.GetPlayerID())

	state := lastState(t, host)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Bob", state.Players[1].DisplayName)
	assert.False(t, state.Players[1].IsReady)

	_, err = sm.JoinGame(ctx, testutil.NewSimpleClient("c3", ""), code, "Carol")
	assert.ErrorIs(t, err, apperrors.ErrSessionFull)
}

func TestToggleReady_Silent(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	host := testutil.NewSimpleClient("c1", "")
	code, _, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)
	host.Reset()

	err = sm.ToggleReady(ctx, "NOPE00", "x")
	assert.True(t, apperrors.IsSilent(err))

	err = sm.ToggleReady(ctx, code, "missing")
	assert.True(t, apperrors.IsSilent(err))
	assert.Empty(t, host.SentMessages())
}

func TestStartGame(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	host := testutil.NewSimpleClient("c1", "")
	guest := testutil.NewSimpleClient("c2", "")

	code, hostID, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)
	guestID, err := sm.JoinGame(ctx, guest, code, "Bob")
	require.NoError(t, err)
	guest.Reset()

	err = sm.StartGame(ctx, code)
	assert.ErrorIs(t, err, apperrors.ErrNotAllReady)
	assert.True(t, apperrors.IsSilent(err))
	assert.Empty(t, guest.SentMessages())

	require.NoError(t, sm.ToggleReady(ctx, code, guestID))
	guest.Reset()
	require.NoError(t, sm.StartGame(ctx, code))

	msgs := guest.SentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.MsgGameState, msgs[0].Type)
	assert.Equal(t, protocol.MsgGameStarted, msgs[1].Type)

	state := lastState(t, guest)
	assert.True(t, state.IsStarted)
	assert.Equal(t, "active", state.Phase)
	assert.Len(t, state.Board, board.BoardSize)
	assert.Equal(t, hostID, state.CurrentTurn)
	assert.Equal(t, 1, sm.GetActiveGamesCount())
}

func TestRollDice_DeferredResolution(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	code, host, guest := startTwoPlayerGame(t, sm)
	host.Reset()

	require.NoError(t, sm.RollDice(ctx, code, host.GetPlayerID()))

	intermediate := lastState(t, host)
	require.NotNil(t, intermediate.PendingRoll)
	assert.Equal(t, 3, *intermediate.PendingRoll)
	assert.Equal(t, 0, intermediate.Players[0].Position)
	assert.Equal(t, 1, sm.PendingMoves())

	err := sm.RollDice(ctx, code, host.GetPlayerID())
	assert.ErrorIs(t, err, apperrors.ErrRollPending)
	err = sm.RollDice(ctx, code, guest.GetPlayerID())
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)

	assert.Eventually(t, func() bool {
		return len(host.MessagesOfType(protocol.MsgGameState)) == 2
	}, time.Second, 5*time.Millisecond)

	final := lastState(t, host)
	assert.Nil(t, final.PendingRoll)
	assert.Equal(t, 3, final.Players[0].Position)
	assert.Equal(t, guest.GetPlayerID(), final.CurrentTurn)
	assert.Zero(t, sm.PendingMoves())
}

func TestRollDice_ConcurrentRequestsOneWins(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{RollDelay: 50 * time.Millisecond})
	code, host, _ := startTwoPlayerGame(t, sm)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sm.RollDice(context.Background(), code, host.GetPlayerID()); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())

	assert.Eventually(t, func() bool {
		return sm.GetSession(code).Snapshot().PendingRoll == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, sm.GetSession(code).Snapshot().Players[0].Position)
}

func TestResolveMove_StalePendingRollIsNoop(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{RollDelay: 30 * time.Millisecond})
	code, host, _ := startTwoPlayerGame(t, sm)

	require.NoError(t, sm.RollDice(context.Background(), code, host.GetPlayerID()))

	s := sm.GetSession(code)
	s.mu.Lock()
	s.game.PendingRoll = nil
	s.mu.Unlock()

	host.Reset()
	time.Sleep(100 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Players[0].Position)
	assert.Equal(t, 0, snap.Players[0].Score)
	assert.Equal(t, host.GetPlayerID(), snap.CurrentTurn)
	assert.Empty(t, host.SentMessages())
}

func TestResolveMove_DirectStaleTaskIsNoop(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	code, host, _ := startTwoPlayerGame(t, sm)
	host.Reset()

	sm.resolveMove(moveTask{code: code, playerID: host.GetPlayerID(), roll: 3})
	sm.resolveMove(moveTask{code: "GONE00", playerID: host.GetPlayerID(), roll: 3})

	assert.Empty(t, host.SentMessages())
	assert.Equal(t, 0, sm.GetSession(code).Snapshot().Players[0].Position)
}

func TestResolveMove_WinBroadcastsAndRecords(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lb := storage.NewLeaderboardManager(client)
	sm := NewSessionManager(storage.NewRedisStore(client), lb, Options{
		RollDelay: testRollDelay,
		NewRNG:    func() board.RNG { return fixedRNG{roll: 3} },
	})
	t.Cleanup(sm.Shutdown)

	code, host, guest := startTwoPlayerGame(t, sm)
	s := sm.GetSession(code)
	s.mu.Lock()
	s.game.Players[0].Score = 90
	pts := 10
	s.game.Board[3] = board.Space{Index: 3, Kind: board.KindTreasure, Points: &pts}
	s.mu.Unlock()

	require.NoError(t, sm.RollDice(context.Background(), code, host.GetPlayerID()))

	assert.Eventually(t, func() bool {
		return len(guest.MessagesOfType(protocol.MsgGameWon)) == 1
	}, time.Second, 5*time.Millisecond)

	msgs := guest.SentMessages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, protocol.MsgGameWon, last.Type)
	assert.Equal(t, protocol.MsgGameState, msgs[len(msgs)-2].Type)

	won, err := codec.ParsePayload[protocol.GameWonPayload](last)
	require.NoError(t, err)
	assert.Equal(t, host.GetPlayerID(), won.WinnerID)
	assert.Equal(t, "finished", lastState(t, guest).Phase)
	assert.Zero(t, sm.GetActiveGamesCount())

	assert.Eventually(t, func() bool {
		rank, err := lb.GetPlayerRank(context.Background(), "Alice")
		return err == nil && rank == 1
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.Exists("session:" + code)
	}, time.Second, 10*time.Millisecond)
}

func TestPlayerDisconnected(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	code, host, guest := startTwoPlayerGame(t, sm)

	sm.PlayerDisconnected(host)

	state := lastState(t, guest)
	assert.False(t, state.Players[0].Active)
	assert.Equal(t, guest.GetPlayerID(), state.CurrentTurn, "current player leaving passes the turn")
	assert.NotNil(t, sm.GetSession(code))

	sm.PlayerDisconnected(guest)
	assert.Nil(t, sm.GetSession(code))
}

func TestCreateGame_LeavesPreviousSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	host := testutil.NewSimpleClient("c1", "")
	guest := testutil.NewSimpleClient("c2", "")

	codeA, _, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)
	guestID, err := sm.JoinGame(ctx, guest, codeA, "Bob")
	require.NoError(t, err)

	codeB, _, err := sm.CreateGame(ctx, host, "Alice")
	require.NoError(t, err)
	assert.Equal(t, codeB, host.GetSession())

	state := lastState(t, guest)
	assert.False(t, state.Players[0].Active)
	assert.True(t, state.Players[1].Active)

	before := len(host.MessagesOfType(protocol.MsgGameState))
	require.NoError(t, sm.ToggleReady(ctx, codeA, guestID))
	assert.Len(t, host.MessagesOfType(protocol.MsgGameState), before)

	sm.PlayerDisconnected(host)
	sm.PlayerDisconnected(guest)
	assert.Nil(t, sm.GetSession(codeA))
	assert.Nil(t, sm.GetSession(codeB))
	assert.Zero(t, sm.GetSessionCount())
}

func TestJoinGame_LeavesPreviousSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	mover := testutil.NewSimpleClient("c1", "")
	other := testutil.NewSimpleClient("c2", "")

	codeA, _, err := sm.CreateGame(ctx, mover, "Alice")
	require.NoError(t, err)
	codeB, _, err := sm.CreateGame(ctx, other, "Bob")
	require.NoError(t, err)

	_, err = sm.JoinGame(ctx, mover, codeB, "Alice")
	require.NoError(t, err)

	assert.Nil(t, sm.GetSession(codeA), "sole player leaving removes the session")
	assert.Equal(t, codeB, mover.GetSession())
	assert.Len(t, lastState(t, other).Players, 2)
}

func TestJoinGame_FailureKeepsCurrentSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	ctx := context.Background()
	client := testutil.NewSimpleClient("c1", "")

	code, playerID, err := sm.CreateGame(ctx, client, "Alice")
	require.NoError(t, err)

	_, err = sm.JoinGame(ctx, client, "NOPE00", "Alice")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.NotNil(t, sm.GetSession(code))
	assert.Equal(t, code, client.GetSession())
	assert.Equal(t, playerID, client.GetPlayerID())
}

func TestPlayerDisconnected_NotInSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	assert.NotPanics(t, func() {
		sm.PlayerDisconnected(testutil.NewSimpleClient("c1", "nobody"))
	})
}

func TestPlayerDisconnected_CancelsPendingMove(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{RollDelay: time.Hour})
	ctx := context.Background()
	client := testutil.NewSimpleClient("c1", "")
	code, playerID, err := sm.CreateGame(ctx, client, "Solo")
	require.NoError(t, err)
	require.NoError(t, sm.StartGame(ctx, code))
	require.NoError(t, sm.RollDice(ctx, code, playerID))
	require.Equal(t, 1, sm.PendingMoves())

	sm.PlayerDisconnected(client)

	assert.Nil(t, sm.GetSession(code))
	assert.Zero(t, sm.PendingMoves())
}

func TestCleanup_EvictsIdleSessions(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{IdleTimeout: 10 * time.Millisecond, RollDelay: time.Hour})
	ctx := context.Background()

	idle := testutil.NewSimpleClient("c1", "")
	code, playerID, err := sm.CreateGame(ctx, idle, "Idle")
	require.NoError(t, err)
	require.NoError(t, sm.StartGame(ctx, code))
	require.NoError(t, sm.RollDice(ctx, code, playerID))

	time.Sleep(30 * time.Millisecond)

	fresh := testutil.NewSimpleClient("c2", "")
	freshCode, _, err := sm.CreateGame(ctx, fresh, "Fresh")
	require.NoError(t, err)

	sm.cleanup()

	assert.Nil(t, sm.GetSession(code))
	assert.NotNil(t, sm.GetSession(freshCode))
	assert.Zero(t, sm.PendingMoves())
	assert.Empty(t, idle.GetSession())
	assert.Equal(t, protocol.MsgError, idle.LastMessage().Type)

	err = sm.ToggleReady(ctx, code, playerID)
	assert.ErrorIs(t, err, apperrors.ErrSessionUnknown)
}

func TestShutdown_CancelsPendingMoves(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{RollDelay: 30 * time.Millisecond})
	code, host, _ := startTwoPlayerGame(t, sm)
	require.NoError(t, sm.RollDice(context.Background(), code, host.GetPlayerID()))

	sm.Shutdown()
	time.Sleep(80 * time.Millisecond)

	snap := sm.GetSession(code).Snapshot()
	assert.Equal(t, 0, snap.Players[0].Position)
	require.NotNil(t, snap.PendingRoll)
	assert.NotPanics(t, sm.Shutdown)
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	sm := newTestManager(t, Options{})
	codeA, hostA, _ := startTwoPlayerGame(t, sm)
	codeB, hostB, _ := startTwoPlayerGame(t, sm)

	var wg sync.WaitGroup
	for _, pair := range []struct {
		code string
		c    *testutil.SimpleClient
	}{{codeA, hostA}, {codeB, hostB}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sm.RollDice(context.Background(), pair.code, pair.c.GetPlayerID()))
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return sm.GetSession(codeA).Snapshot().Players[0].Position == 3 &&
			sm.GetSession(codeB).Snapshot().Players[0].Position == 3
	}, time.Second, 5*time.Millisecond)
}
