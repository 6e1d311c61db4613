package resync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

func TestRecordStrokeAcceptsInOrderSequenceOnly(t *testing.T) {
	tr := New()

	accepted, _ := tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 0})
	assert.True(t, accepted)

	accepted, _ = tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 2})
	assert.False(t, accepted, "out-of-order sequence must be rejected")

	accepted, _ = tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 1})
	assert.True(t, accepted, "the actually-next sequence must be accepted")

	snap := tr.Snapshot("ROOM1")
	require.Len(t, snap.Strokes, 2)
}

func TestClearBumpsVersionAndDropsBacklog(t *testing.T) {
	tr := New()
	tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 0})
	tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 1})

	before := tr.Snapshot("ROOM1").CanvasVersion
	version := tr.Clear("ROOM1")
	assert.Equal(t, before+1, version)

	snap := tr.Snapshot("ROOM1")
	assert.Empty(t, snap.Strokes)
	assert.Equal(t, version, snap.CanvasVersion)

	accepted, _ := tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 0})
	assert.True(t, accepted, "sequence numbering restarts after a clear")
}

func TestBeginSnapshotRequestGuardsAgainstConcurrentRequestsPerSocket(t *testing.T) {
	tr := New()
	assert.True(t, tr.BeginSnapshotRequest("socket-1"))
	assert.False(t, tr.BeginSnapshotRequest("socket-1"), "a second in-flight request from the same socket must be rejected")

	tr.EndSnapshotRequest("socket-1")
	assert.True(t, tr.BeginSnapshotRequest("socket-1"), "the guard releases once the prior request ends")
}

func TestRoomsAreIndependent(t *testing.T) {
	tr := New()
	tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 0})
	snap := tr.Snapshot("ROOM2")
	assert.Empty(t, snap.Strokes)
}

func TestDropRoomReleasesState(t *testing.T) {
	tr := New()
	tr.RecordStroke("ROOM1", domain.DrawingData{Sequence: 0})
	tr.DropRoom("ROOM1")
	snap := tr.Snapshot("ROOM1")
	assert.Empty(t, snap.Strokes)
	assert.Equal(t, int64(0), snap.CanvasVersion)
}
