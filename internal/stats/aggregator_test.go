package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeReader serves canned facts, filtering by the same completed_at range
// semantics as the real reader.
type fakeReader struct {
	exercises map[uuid.UUID]ExerciseFact
	sessions  []SessionFact
	sets      []SetFact
	err       error
}

func (r *fakeReader) CompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]SessionFact, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := []SessionFact{}
	for _, s := range r.sessions {
		if !s.CompletedAt.Before(start) && s.CompletedAt.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeReader) CompletedSets(ctx context.Context, userID int, start, end time.Time) ([]SetFact, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := []SetFact{}
	for _, f := range r.sets {
		if !f.SessionCompletedAt.Before(start) && f.SessionCompletedAt.Before(end) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeReader) AllCompletedSets(ctx context.Context, userID int) ([]SetFact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sets, nil
}

func (r *fakeReader) ExerciseInfo(ctx context.Context, exerciseID uuid.UUID) (ExerciseFact, error) {
	if r.err != nil {
		return ExerciseFact{}, r.err
	}
	f, ok := r.exercises[exerciseID]
	if !ok {
		return ExerciseFact{}, errors.New("exercise not found")
	}
	return f, nil
}

func newTestAggregator(r Reader) *Aggregator {
	return NewAggregator(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
}

func restPtr(sec int) *int { return &sec }

// TestOverview verifies the range aggregates: volume excludes warm-ups and
// out-of-range sessions, rest averages include warm-ups, the busiest muscle
// is counted by working sets.
func TestOverview(t *testing.T) {
	bench := uuid.New()
	row := uuid.New()
	reader := &fakeReader{
		sessions: []SessionFact{
			{ID: uuid.New(), CompletedAt: day(5), ActiveDurationSec: 1800, TotalRestSec: 300},
			{ID: uuid.New(), CompletedAt: day(10), ActiveDurationSec: 2200, TotalRestSec: 400},
			{ID: uuid.New(), CompletedAt: day(25), ActiveDurationSec: 9999}, // outside range
		},
		sets: []SetFact{
			{ExerciseID: bench, ExerciseName: "Bench Press", MuscleGroup: "Chest", Weight: 100, Reps: 5, SessionCompletedAt: day(5), ActualRestSec: restPtr(90)},
			{ExerciseID: bench, ExerciseName: "Bench Press", MuscleGroup: "Chest", Weight: 40, Reps: 10, IsWarmup: true, SessionCompletedAt: day(5), ActualRestSec: restPtr(30)},
			{ExerciseID: row, ExerciseName: "Barbell Row", MuscleGroup: "Back", Weight: 70, Reps: 10, SessionCompletedAt: day(10)},
			{ExerciseID: row, ExerciseName: "Barbell Row", MuscleGroup: "Back", Weight: 70, Reps: 10, SessionCompletedAt: day(10)},
			{ExerciseID: bench, ExerciseName: "Bench Press", MuscleGroup: "Chest", Weight: 110, Reps: 3, SessionCompletedAt: day(25)}, // outside range
		},
	}
	a := newTestAggregator(reader)

	ov, err := a.Overview(context.Background(), 1, day(1), day(20))
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.WorkoutCount != 2 {
		t.Errorf("workout_count = %d, want 2", ov.WorkoutCount)
	}
	// 100*5 + 70*10 + 70*10 = 1900; warm-up and out-of-range excluded.
	if ov.TotalVolume != 1900 {
		t.Errorf("total_volume = %g, want 1900", ov.TotalVolume)
	}
	// Back has 2 working sets, Chest 1 (warm-up does not count).
	if ov.MostTrainedMuscle != "Back" {
		t.Errorf("most_trained_muscle = %q, want Back", ov.MostTrainedMuscle)
	}
	if ov.AvgWorkoutDuration != 2000 {
		t.Errorf("avg_workout_duration_sec = %g, want 2000", ov.AvgWorkoutDuration)
	}
	// Rest average includes the warm-up set: (90+30)/2.
	if ov.AvgRestTime != 60 {
		t.Errorf("avg_rest_time_sec = %g, want 60", ov.AvgRestTime)
	}
}

// TestOverviewEmpty verifies the zero-value shape for a range with no data.
func TestOverviewEmpty(t *testing.T) {
	a := newTestAggregator(&fakeReader{})
	ov, err := a.Overview(context.Background(), 1, day(1), day(20))
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.WorkoutCount != 0 || ov.TotalVolume != 0 {
		t.Errorf("got %+v, want zeroes", ov)
	}
	if ov.MostTrainedMuscle != "None" {
		t.Errorf("most_trained_muscle = %q, want None", ov.MostTrainedMuscle)
	}
}

// TestPersonalRecords verifies one record per exercise with the
// weight > reps > recency tie-break and 1RM-descending ordering.
func TestPersonalRecords(t *testing.T) {
	bench := uuid.New()
	squat := uuid.New()
	reader := &fakeReader{sets: []SetFact{
		{ExerciseID: bench, ExerciseName: "Bench Press", Weight: 100, Reps: 5, SessionCompletedAt: day(1)},
		{ExerciseID: bench, ExerciseName: "Bench Press", Weight: 100, Reps: 8, SessionCompletedAt: day(3)},
		{ExerciseID: bench, ExerciseName: "Bench Press", Weight: 100, Reps: 8, SessionCompletedAt: day(7)}, // same set, later: recency wins
		{ExerciseID: bench, ExerciseName: "Bench Press", Weight: 95, Reps: 12, SessionCompletedAt: day(9)},
		{ExerciseID: bench, ExerciseName: "Bench Press", Weight: 120, Reps: 1, IsWarmup: true, SessionCompletedAt: day(9)}, // warm-ups never set records
		{ExerciseID: squat, ExerciseName: "Squat", Weight: 140, Reps: 3, SessionCompletedAt: day(5)},
	}}
	a := newTestAggregator(reader)

	records, err := a.PersonalRecords(context.Background(), 1)
	if err != nil {
		t.Fatalf("PersonalRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// Squat 140x3 -> 1RM ~148.2 beats bench 100x8 -> ~124.1.
	if records[0].ExerciseName != "Squat" {
		t.Errorf("records[0] = %q, want Squat (highest 1RM first)", records[0].ExerciseName)
	}
	benchPR := records[1]
	if benchPR.Weight != 100 || benchPR.Reps != 8 {
		t.Errorf("bench PR = %gx%d, want 100x8", benchPR.Weight, benchPR.Reps)
	}
	if !benchPR.Date.Equal(day(7)) {
		t.Errorf("bench PR date = %v, want the more recent occurrence", benchPR.Date)
	}
}

// TestEstimateOneRepMax covers the Brzycki formula and its domain edges.
func TestEstimateOneRepMax(t *testing.T) {
	tests := []struct {
		weight float64
		reps   int
		want   float64
	}{
		{100, 0, 0},
		{100, 1, 100},
		{100, 5, 100 * 36 / 32},
		{100, 10, 100 * 36 / 27},
		{100, 36, 100},
		{100, 50, 100},
	}
	for _, tt := range tests {
		got := estimateOneRepMax(tt.weight, tt.reps)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("estimateOneRepMax(%g, %d) = %g, want %g", tt.weight, tt.reps, got, tt.want)
		}
	}
}

// TestTrendPeriods verifies bucket sizing by range span and bucket boundary
// computation (Monday weeks, first-of-month months).
func TestTrendPeriods(t *testing.T) {
	start := day(1)
	tests := []struct {
		name string
		end  time.Time
		want string
	}{
		{"short range daily", start.AddDate(0, 0, 14), "daily"},
		{"edge 31 days daily", start.Add(31 * 24 * time.Hour), "daily"},
		{"quarter weekly", start.AddDate(0, 0, 120), "weekly"},
		{"year monthly", start.AddDate(1, 0, 0), "monthly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := periodFor(start, tt.end); got != tt.want {
				t.Errorf("periodFor = %q, want %q", got, tt.want)
			}
		})
	}

	// 2024-03-15 is a Friday; its week starts Monday 2024-03-11.
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if got := bucketStart(day(15), "weekly"); !got.Equal(monday) {
		t.Errorf("weekly bucket of %v = %v, want %v", day(15), got, monday)
	}
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := bucketStart(day(15), "monthly"); !got.Equal(first) {
		t.Errorf("monthly bucket = %v, want %v", got, first)
	}
	midnight := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := bucketStart(day(15), "daily"); !got.Equal(midnight) {
		t.Errorf("daily bucket = %v, want %v", got, midnight)
	}
}

// TestTrendSeries verifies per-bucket reduction for each metric and that
// empty buckets are omitted.
func TestTrendSeries(t *testing.T) {
	bench := uuid.New()
	reader := &fakeReader{
		sessions: []SessionFact{
			{ID: uuid.New(), CompletedAt: day(5), ActiveDurationSec: 1800},
			{ID: uuid.New(), CompletedAt: day(5).Add(2 * time.Hour), ActiveDurationSec: 1200},
			{ID: uuid.New(), CompletedAt: day(12), ActiveDurationSec: 2400},
		},
		sets: []SetFact{
			{ExerciseID: bench, MuscleGroup: "Chest", Weight: 100, Reps: 5, SessionCompletedAt: day(5)},
			{ExerciseID: bench, MuscleGroup: "Chest", Weight: 100, Reps: 5, SessionCompletedAt: day(5).Add(2 * time.Hour)},
			{ExerciseID: bench, MuscleGroup: "Chest", Weight: 60, Reps: 10, IsWarmup: true, SessionCompletedAt: day(5)},
			{ExerciseID: bench, MuscleGroup: "Chest", Weight: 110, Reps: 3, SessionCompletedAt: day(12)},
		},
	}
	a := newTestAggregator(reader)
	ctx := context.Background()

	vol, err := a.Trend(ctx, 1, day(1), day(20), MetricVolume)
	if err != nil {
		t.Fatalf("Trend volume: %v", err)
	}
	if vol.Period != "daily" {
		t.Errorf("period = %q, want daily", vol.Period)
	}
	// Two training days only; the 14 quiet days produce no points.
	if len(vol.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(vol.Points))
	}
	if vol.Points[0].Value != 1000 { // two 100x5 working sets, warm-up excluded
		t.Errorf("day 5 volume = %g, want 1000", vol.Points[0].Value)
	}
	if vol.Points[1].Value != 330 {
		t.Errorf("day 12 volume = %g, want 330", vol.Points[1].Value)
	}
	if !vol.Points[0].Date.Before(vol.Points[1].Date) {
		t.Error("points must be in date order")
	}

	freq, err := a.Trend(ctx, 1, day(1), day(20), MetricFrequency)
	if err != nil {
		t.Fatalf("Trend frequency: %v", err)
	}
	if freq.Points[0].Value != 2 || freq.Points[1].Value != 1 {
		t.Errorf("frequency = %g,%g, want 2,1", freq.Points[0].Value, freq.Points[1].Value)
	}

	dur, err := a.Trend(ctx, 1, day(1), day(20), MetricDuration)
	if err != nil {
		t.Fatalf("Trend duration: %v", err)
	}
	if dur.Points[0].Value != 3000 {
		t.Errorf("day 5 duration = %g, want 3000", dur.Points[0].Value)
	}

	var uerr *ErrUnknownMetric
	if _, err := a.Trend(ctx, 1, day(1), day(20), "sleep"); !errors.As(err, &uerr) {
		t.Errorf("unknown metric: got %v, want ErrUnknownMetric", err)
	}
}

// TestMuscleGroups verifies volume aggregation per group and normalization
// with the busiest group pinned at 100.
func TestMuscleGroups(t *testing.T) {
	bench := uuid.New()
	row := uuid.New()
	curl := uuid.New()
	reader := &fakeReader{sets: []SetFact{
		{ExerciseID: bench, MuscleGroup: "Chest", Weight: 100, Reps: 10, SessionCompletedAt: day(5)},
		{ExerciseID: bench, MuscleGroup: "Chest", Weight: 100, Reps: 10, SessionCompletedAt: day(10)},
		{ExerciseID: row, MuscleGroup: "Back", Weight: 70, Reps: 10, SessionCompletedAt: day(5)},
		{ExerciseID: curl, MuscleGroup: "Biceps", Weight: 20, Reps: 12, SessionCompletedAt: day(5)},
		{ExerciseID: bench, MuscleGroup: "Chest", Weight: 60, Reps: 10, IsWarmup: true, SessionCompletedAt: day(5)},
	}}
	a := newTestAggregator(reader)

	groups, err := a.MuscleGroups(context.Background(), 1, day(1), day(20))
	if err != nil {
		t.Fatalf("MuscleGroups: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].Name != "Chest" || groups[0].Volume != 2000 || groups[0].SetsCount != 2 {
		t.Errorf("groups[0] = %+v, want Chest 2000 over 2 sets", groups[0])
	}
	if groups[0].ActivityLevel != 100 {
		t.Errorf("top group activity = %d, want exactly 100", groups[0].ActivityLevel)
	}
	if groups[1].Name != "Back" || groups[1].ActivityLevel != 35 { // round(700/2000*100)
		t.Errorf("groups[1] = %+v, want Back at 35", groups[1])
	}
	if groups[2].Name != "Biceps" || groups[2].ActivityLevel != 12 { // round(240/2000*100)
		t.Errorf("groups[2] = %+v, want Biceps at 12", groups[2])
	}
	if groups[0].LastTrained == nil || !groups[0].LastTrained.Equal(day(10)) {
		t.Errorf("Chest last_trained = %v, want %v", groups[0].LastTrained, day(10))
	}
}

// TestExerciseProgress verifies the per-exercise history: record fields and
// the best one-rep max over working sets only, per-session volume and
// top-weight points in date order, and recent sets limited to the last three
// sessions with the record set flagged.
func TestExerciseProgress(t *testing.T) {
	bench := uuid.New()
	squat := uuid.New()
	s1, s2, s3, s4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	reader := &fakeReader{
		exercises: map[uuid.UUID]ExerciseFact{
			bench: {ID: bench, Name: "Bench Press", MuscleGroup: "Chest"},
			squat: {ID: squat, Name: "Squat", MuscleGroup: "Legs"},
		},
		sets: []SetFact{
			{SessionID: s1, ExerciseID: bench, Weight: 80, Reps: 8, SessionCompletedAt: day(1)},
			{SessionID: s1, ExerciseID: bench, Weight: 40, Reps: 10, IsWarmup: true, SessionCompletedAt: day(1)},
			{SessionID: s2, ExerciseID: bench, Weight: 90, Reps: 6, SessionCompletedAt: day(5)},
			{SessionID: s2, ExerciseID: bench, Weight: 90, Reps: 6, SessionCompletedAt: day(5)},
			{SessionID: s3, ExerciseID: bench, Weight: 100, Reps: 5, SessionCompletedAt: day(10)},
			{SessionID: s3, ExerciseID: squat, Weight: 140, Reps: 3, SessionCompletedAt: day(10)},
			{SessionID: s4, ExerciseID: bench, Weight: 95, Reps: 8, SessionCompletedAt: day(15)},
		},
	}
	a := newTestAggregator(reader)

	progress, err := a.ExerciseProgress(context.Background(), 1, bench, day(1), day(20))
	if err != nil {
		t.Fatalf("ExerciseProgress: %v", err)
	}
	if progress.ExerciseName != "Bench Press" || progress.TargetMuscleGroup != "Chest" {
		t.Errorf("identity = %q/%q, want Bench Press/Chest", progress.ExerciseName, progress.TargetMuscleGroup)
	}
	if progress.PersonalRecordWeight == nil || *progress.PersonalRecordWeight != 100 {
		t.Errorf("record weight = %v, want 100", progress.PersonalRecordWeight)
	}
	if progress.PersonalRecordReps == nil || *progress.PersonalRecordReps != 8 {
		t.Errorf("record reps = %v, want 8", progress.PersonalRecordReps)
	}
	if progress.PersonalRecordDate == nil || !progress.PersonalRecordDate.Equal(day(10)) {
		t.Errorf("record date = %v, want %v", progress.PersonalRecordDate, day(10))
	}
	// 95x8 estimates higher than 100x5: 95*36/29 vs 112.5.
	want1RM := 95 * 36.0 / 29
	if progress.EstimatedOneRepMax == nil || math.Abs(*progress.EstimatedOneRepMax-want1RM) > 1e-9 {
		t.Errorf("estimated 1RM = %v, want %g", progress.EstimatedOneRepMax, want1RM)
	}

	if len(progress.VolumeOverTime) != 4 {
		t.Fatalf("got %d volume points, want 4", len(progress.VolumeOverTime))
	}
	// Warm-up and the squat set contribute nothing.
	for i, want := range []float64{640, 1080, 500, 760} {
		if progress.VolumeOverTime[i].Volume != want {
			t.Errorf("volume[%d] = %g, want %g", i, progress.VolumeOverTime[i].Volume, want)
		}
	}
	if len(progress.MaxWeightOverTime) != 4 {
		t.Fatalf("got %d max points, want 4", len(progress.MaxWeightOverTime))
	}
	if top := progress.MaxWeightOverTime[2]; top.Weight != 100 || top.Reps != 5 {
		t.Errorf("max point[2] = %gx%d, want 100x5", top.Weight, top.Reps)
	}

	// Last three sessions, newest first; the day-1 set falls off.
	if len(progress.RecentSets) != 4 {
		t.Fatalf("got %d recent sets, want 4", len(progress.RecentSets))
	}
	if !progress.RecentSets[0].Date.Equal(day(15)) || progress.RecentSets[0].Weight != 95 {
		t.Errorf("recent[0] = %+v, want the day-15 set", progress.RecentSets[0])
	}
	for _, p := range progress.RecentSets {
		if got, want := p.IsPersonalRecord, p.Weight == 100 && p.Reps == 5; got != want {
			t.Errorf("recent %gx%d is_personal_record = %v, want %v", p.Weight, p.Reps, got, want)
		}
	}

	// An exercise with no logged sets yields the identity and empty series.
	empty, err := a.ExerciseProgress(context.Background(), 1, squat, day(11), day(20))
	if err != nil {
		t.Fatalf("ExerciseProgress empty range: %v", err)
	}
	if empty.PersonalRecordWeight != nil || len(empty.VolumeOverTime) != 0 || len(empty.RecentSets) != 0 {
		t.Errorf("empty progress = %+v, want no record and no points", empty)
	}

	if _, err := a.ExerciseProgress(context.Background(), 1, uuid.New(), day(1), day(20)); err == nil {
		t.Error("unknown exercise should fail")
	}
}

// TestSummary verifies the fan-out assembles all four sections and that a
// reader failure propagates.
func TestSummary(t *testing.T) {
	bench := uuid.New()
	reader := &fakeReader{
		sessions: []SessionFact{{ID: uuid.New(), CompletedAt: day(5), ActiveDurationSec: 1800}},
		sets: []SetFact{
			{ExerciseID: bench, ExerciseName: "Bench Press", MuscleGroup: "Chest", Weight: 100, Reps: 5, SessionCompletedAt: day(5)},
		},
	}
	a := newTestAggregator(reader)

	summary, err := a.Summary(context.Background(), 1, day(1), day(20))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Overview == nil || summary.Overview.WorkoutCount != 1 {
		t.Error("summary overview missing or wrong")
	}
	if summary.VolumeTrend == nil || summary.VolumeTrend.Metric != MetricVolume {
		t.Error("summary volume trend missing")
	}
	if len(summary.PersonalRecords) != 1 {
		t.Errorf("got %d records, want 1", len(summary.PersonalRecords))
	}
	if len(summary.MuscleGroups) != 1 {
		t.Errorf("got %d muscle groups, want 1", len(summary.MuscleGroups))
	}

	failing := newTestAggregator(&fakeReader{err: errors.New("connection reset")})
	if _, err := failing.Summary(context.Background(), 1, day(1), day(20)); err == nil {
		t.Error("expected reader error to propagate")
	}
}
