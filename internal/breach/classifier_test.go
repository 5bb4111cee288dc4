package breach

import (
	"testing"
	"time"

	"github.com/bullionx/capital-api/internal/capital"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&BreachEvent{}))
	return NewDatabase(db)
}

func snapshotAt(util, ecr float64, asOf time.Time) capital.CapitalSnapshot {
	cfg := capital.DefaultRiskConfig()
	return capital.CapitalSnapshot{
		AsOf:                  asOf,
		CapitalBase:           100_000_000,
		HardstopLimit:         50_000_000,
		GrossExposureNotional: util * 50_000_000,
		HardstopUtilization:   util,
		ECR:                   ecr,
		BufferVsTVaR99:        1,
		BreachLevel:           capital.LevelClear,
		ConfigVersion:         cfg.Version,
	}
}

func TestFingerprintDeterministicWithinMinute(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 30, 5, 0, time.UTC)
	later := base.Add(40 * time.Second) // same minute bucket

	a := fingerprint(TypeHardstopBreach, base, capital.LevelBreach, 0.9612, 4.1234)
	b := fingerprint(TypeHardstopBreach, later, capital.LevelBreach, 0.9612, 4.1234)
	assert.Equal(t, a, b)

	nextMinute := fingerprint(TypeHardstopBreach, base.Add(time.Minute), capital.LevelBreach, 0.9612, 4.1234)
	assert.NotEqual(t, a, nextMinute)

	otherType := fingerprint(TypeECRBreach, base, capital.LevelBreach, 0.9612, 4.1234)
	assert.NotEqual(t, a, otherType)
}

func TestEvaluateConditions(t *testing.T) {
	cfg := capital.DefaultRiskConfig()
	now := time.Now()

	tests := []struct {
		name      string
		util, ecr float64
		buffer    float64
		types     []string
	}{
		{"clear", 0.5, 4.0, 1, nil},
		{"hardstop caution", 0.85, 4.0, 1, []string{TypeHardstopCaution}},
		{"hardstop breach", 0.97, 4.0, 1, []string{TypeHardstopBreach}},
		{"ecr warn", 0.5, 8.2, 1, []string{TypeECRCaution}},
		{"ecr critical and warn", 0.5, 9.7, 1, []string{TypeECRBreach, TypeECRCaution}},
		{"buffer negative", 0.5, 4.0, -100, []string{TypeBufferNegative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotAt(tt.util, tt.ecr, now)
			snap.BufferVsTVaR99 = tt.buffer

			events := Evaluate(snap, cfg)

			var got []string
			for _, e := range events {
				got = append(got, e.Type)
			}
			assert.ElementsMatch(t, tt.types, got)
		})
	}
}

func TestAppendEventDuplicateInsertIsNoOp(t *testing.T) {
	store := newTestDB(t)
	now := time.Now()

	event := BreachEvent{
		EventID:    "fixed-id",
		OccurredAt: now,
		Type:       TypeHardstopBreach,
		Level:      LevelCritical,
	}

	created, err := store.AppendEvent(&event)
	require.NoError(t, err)
	assert.True(t, created)

	// The unique index rejects a second row and the driver error translates
	// to gorm.ErrDuplicatedKey, which the appender's race fallback matches.
	dup := BreachEvent{EventID: "fixed-id", OccurredAt: now, Type: TypeHardstopBreach, Level: LevelCritical}
	assert.ErrorIs(t, store.db.Create(&dup).Error, gorm.ErrDuplicatedKey)

	again := BreachEvent{EventID: "fixed-id", OccurredAt: now, Type: TypeHardstopBreach, Level: LevelCritical}
	created, err = store.AppendEvent(&again)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSweepIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	classifier := NewClassifier(db, nil)
	cfg := capital.DefaultRiskConfig()
	now := time.Now()

	snap := snapshotAt(0.97, 4.0, now)

	first, err := classifier.Sweep(snap, cfg)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same snapshot, same minute: the candidate's content-addressed ID is
	// identical and the second append is a no-op.
	second, err := classifier.Sweep(snap, cfg)
	require.NoError(t, err)
	assert.Empty(t, second)

	stored, err := db.GetEventsSince(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSweepAppendsAcrossMinutes(t *testing.T) {
	db := newTestDB(t)
	classifier := NewClassifier(db, nil)
	cfg := capital.DefaultRiskConfig()
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	_, err := classifier.Sweep(snapshotAt(0.97, 4.0, now), cfg)
	require.NoError(t, err)

	appended, err := classifier.Sweep(snapshotAt(0.97, 4.0, now.Add(2*time.Minute)), cfg)
	require.NoError(t, err)
	assert.Len(t, appended, 1)

	stored, err := db.GetEventsSince(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

type countingRecorder struct {
	calls int
}

func (r *countingRecorder) RecordBreach(event *BreachEvent) error {
	r.calls++
	return nil
}

func TestSweepEmitsAuditOncePerNewEvent(t *testing.T) {
	db := newTestDB(t)
	recorder := &countingRecorder{}
	classifier := NewClassifier(db, recorder)
	cfg := capital.DefaultRiskConfig()
	now := time.Now()

	snap := snapshotAt(0.97, 8.2, now)

	_, err := classifier.Sweep(snap, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, recorder.calls) // hardstop breach + ecr warn

	_, err = classifier.Sweep(snap, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, recorder.calls) // duplicates emit nothing
}
