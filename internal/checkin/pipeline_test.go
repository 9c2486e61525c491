package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/store"
)

var testBase = time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)

// newTestPipeline seeds the Ama Serwaa member + teen account and
// returns a pipeline over a fresh in-memory store with a fake clock.
func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *store.Store, *clock.Fake) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.InsertMember(ctx, record.Member{
		ID:           record.NewID(),
		Name:         "Ama Serwaa",
		PersonalCode: "54321",
	}))
	require.NoError(t, st.InsertAccount(ctx, record.Account{
		ID:           record.NewID(),
		Email:        "ama@example.com",
		Password:     "pw",
		Role:         record.RoleTeen,
		PersonalCode: "54321",
	}))

	clk := clock.NewFake(testBase)
	return New(st, clk, opts...), st, clk
}

func TestPipeline_HappyPathQRScan(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	assert.Equal(t, StateIdle, p.State())

	member, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	assert.Equal(t, "Ama Serwaa", member.Name)
	assert.Equal(t, StateAwaitingConfirmation, p.State())
	assert.Equal(t, "Ama Serwaa", p.Candidate().Name)

	rec, err := p.Confirm(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, record.MethodQRScan, rec.Method)
	assert.Equal(t, DefaultService, rec.Service)
	assert.Equal(t, DefaultLocation, rec.Location)
	assert.True(t, rec.Timestamp.Equal(testBase))

	assert.Equal(t, StateUndoWindowOpen, p.State())

	records, err := st.ListAttendance(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1, "exactly one record per confirmed check-in")
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestPipeline_MethodTagFollowsChannel(t *testing.T) {
	for _, method := range []record.Method{record.MethodQRScan, record.MethodKeyEntry, record.MethodSmartSearch} {
		t.Run(string(method), func(t *testing.T) {
			p, st, _ := newTestPipeline(t)
			ctx := context.Background()

			_, err := p.Scan(ctx, "54321", method)
			require.NoError(t, err)
			rec, err := p.Confirm(ctx)
			require.NoError(t, err)
			assert.Equal(t, method, rec.Method)

			records, err := st.ListAttendance(ctx, 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, method, records[0].Method)
		})
	}
}

func TestPipeline_MalformedCodeRejected(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "12ab5", record.MethodKeyEntry)
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.Equal(t, StateRejected, p.State())
	assert.Error(t, p.Rejection())

	// Rejected blocks further scans until acknowledged.
	_, err = p.Scan(ctx, "54321", record.MethodKeyEntry)
	assert.ErrorIs(t, err, ErrBusy)

	p.Acknowledge()
	assert.Equal(t, StateIdle, p.State())
	assert.Nil(t, p.Rejection())

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no record written on rejection")
}

func TestPipeline_UnknownCodeRejected(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "99999", record.MethodQRScan)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, StateRejected, p.State())

	p.Acknowledge()

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPipeline_CancelDiscardsCandidate(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)

	require.NoError(t, p.Cancel())
	assert.Equal(t, StateIdle, p.State())
	assert.Nil(t, p.Candidate())

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, p.Cancel(), ErrNoCandidate)
	_, err = p.Confirm(ctx)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestPipeline_UndoWithinWindow(t *testing.T) {
	p, st, clk := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	rec, err := p.Confirm(ctx)
	require.NoError(t, err)

	clk.Advance(3 * time.Second)
	assert.Equal(t, StateUndoWindowOpen, p.State())
	assert.Equal(t, 2*time.Second, p.UndoRemaining())

	undone, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, StateIdle, p.State())

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "undone record removed")

	// Second undo is a quiet no-op.
	undone, err = p.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone)
	_ = rec
}

func TestPipeline_UndoAfterWindowIsNoop(t *testing.T) {
	p, st, clk := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	assert.Equal(t, StateIdle, p.State(), "window elapsed, record stands")
	assert.Equal(t, time.Duration(0), p.UndoRemaining())

	undone, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone)

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "record is permanent")
}

func TestPipeline_UndoRemovesOnlyMostRecent(t *testing.T) {
	p, st, clk := newTestPipeline(t)
	ctx := context.Background()

	// First commit, window allowed to lapse.
	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	first, err := p.Confirm(ctx)
	require.NoError(t, err)
	clk.Advance(10 * time.Second)

	// Second commit, undone inside its window.
	_, err = p.Scan(ctx, "54321", record.MethodKeyEntry)
	require.NoError(t, err)
	second, err := p.Confirm(ctx)
	require.NoError(t, err)
	clk.Advance(time.Second)

	undone, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)

	records, err := st.ListAttendance(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].ID, "only the most recent commit removed")
	assert.NotEqual(t, second.ID, records[0].ID)
}

func TestPipeline_NextCommitOverwritesUndoSlot(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	first, err := p.Confirm(ctx)
	require.NoError(t, err)

	// Immediate second commit while the first window is still open:
	// the slot is single, so only the second commit is undoable.
	_, err = p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)
	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	undone, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)

	records, err := st.ListAttendance(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].ID)
}

func TestPipeline_NoAccountCommitSkippedButSucceeds(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	// Member without a registered account.
	require.NoError(t, st.InsertMember(ctx, record.Member{
		ID:           record.NewID(),
		Name:         "Kwame Boateng",
		PersonalCode: "77777",
	}))

	_, err := p.Scan(ctx, "77777", record.MethodQRScan)
	require.NoError(t, err)

	rec, err := p.Confirm(ctx)
	require.NoError(t, err, "confirm reports success")
	assert.Nil(t, rec, "but nothing was written")
	assert.Equal(t, StateIdle, p.State())

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPipeline_NoDedupWithinService(t *testing.T) {
	p, st, clk := newTestPipeline(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.Scan(ctx, "54321", record.MethodQRScan)
		require.NoError(t, err)
		_, err = p.Confirm(ctx)
		require.NoError(t, err)
		clk.Advance(10 * time.Second)
	}

	n, err := st.CountAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "repeat check-ins are not deduplicated")
}

func TestPipeline_WriteFailureKeepsCandidate(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodQRScan)
	require.NoError(t, err)

	// Simulate the store going away mid-commit.
	require.NoError(t, st.Close())

	_, err = p.Confirm(ctx)
	require.Error(t, err)
	assert.True(t, IsWriteFailure(err))
	assert.Equal(t, StateAwaitingConfirmation, p.State(), "candidate held for retry")
	assert.NotNil(t, p.Candidate())
}

func TestPipeline_CustomWindowAndDefaults(t *testing.T) {
	p, _, clk := newTestPipeline(t,
		WithService("Youth Camp"),
		WithLocation("Annex"),
		WithUndoWindow(2*time.Second),
	)
	ctx := context.Background()

	_, err := p.Scan(ctx, "54321", record.MethodSmartSearch)
	require.NoError(t, err)
	rec, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Youth Camp", rec.Service)
	assert.Equal(t, "Annex", rec.Location)

	clk.Advance(2 * time.Second)
	undone, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone, "shortened window already elapsed")
}
