package stats

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reader supplies the facts the aggregator derives from: completed sessions
// and their logged sets. Range filters apply to session completed_at — a
// session completed outside the range is excluded even if it started inside.
type Reader interface {
	CompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]SessionFact, error)
	CompletedSets(ctx context.Context, userID int, start, end time.Time) ([]SetFact, error)
	AllCompletedSets(ctx context.Context, userID int) ([]SetFact, error)
	ExerciseInfo(ctx context.Context, exerciseID uuid.UUID) (ExerciseFact, error)
}

// ExerciseFact is the catalog identity behind per-exercise derivations.
type ExerciseFact struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscle_group"`
}

// SessionFact is the slice of a completed session the aggregator needs.
type SessionFact struct {
	ID                uuid.UUID `json:"id"`
	CompletedAt       time.Time `json:"completed_at"`
	ActiveDurationSec int       `json:"active_duration_sec"`
	TotalRestSec      int       `json:"total_rest_sec"`
}

// SetFact is one logged set joined with its exercise and owning session.
type SetFact struct {
	SessionID          uuid.UUID `json:"session_id"`
	ExerciseID         uuid.UUID `json:"exercise_id"`
	ExerciseName       string    `json:"exercise_name"`
	MuscleGroup        string    `json:"muscle_group"`
	Weight             float64   `json:"weight"`
	Reps               int       `json:"reps"`
	IsWarmup           bool      `json:"is_warmup"`
	ActualRestSec      *int      `json:"actual_rest_sec,omitempty"`
	SessionCompletedAt time.Time `json:"session_completed_at"`
}

// Volume is weight times reps; zero for warm-up accounting since warm-ups are
// excluded before this is summed.
func (f SetFact) Volume() float64 {
	return f.Weight * float64(f.Reps)
}

// Aggregator derives progress statistics over completed sessions. All
// methods are read-only and independent; Summary fans them out concurrently.
type Aggregator struct {
	reader Reader
	log    *slog.Logger
}

// NewAggregator creates an Aggregator over the given reader.
func NewAggregator(reader Reader, log *slog.Logger) *Aggregator {
	return &Aggregator{reader: reader, log: log}
}

// Overview summarizes training in a date range.
type Overview struct {
	WorkoutCount         int     `json:"workout_count"`
	TotalVolume          float64 `json:"total_volume"`
	MostTrainedMuscle    string  `json:"most_trained_muscle"`
	AvgWorkoutDuration   float64 `json:"avg_workout_duration_sec"`
	AvgRestTime          float64 `json:"avg_rest_time_sec"`
	PersonalRecordsCount int     `json:"personal_records_count"`
}

// Overview computes range-wide aggregates: completed session count, total
// working-set volume, the muscle group with the most working sets (ties
// alphabetical), average session duration and rest, and the number of
// all-time personal records set within the range.
func (a *Aggregator) Overview(ctx context.Context, userID int, start, end time.Time) (*Overview, error) {
	sessions, err := a.reader.CompletedSessions(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	sets, err := a.reader.CompletedSets(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	records, err := a.PersonalRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	ov := &Overview{WorkoutCount: len(sessions), MostTrainedMuscle: "None"}

	totalDuration := 0
	for _, s := range sessions {
		totalDuration += s.ActiveDurationSec
	}
	if len(sessions) > 0 {
		ov.AvgWorkoutDuration = float64(totalDuration) / float64(len(sessions))
	}

	setsByMuscle := make(map[string]int)
	restTotal, restCount := 0, 0
	for _, f := range sets {
		if f.ActualRestSec != nil {
			restTotal += *f.ActualRestSec
			restCount++
		}
		if f.IsWarmup {
			continue
		}
		ov.TotalVolume += f.Volume()
		if f.MuscleGroup != "" {
			setsByMuscle[f.MuscleGroup]++
		}
	}
	if restCount > 0 {
		ov.AvgRestTime = float64(restTotal) / float64(restCount)
	}

	best := -1
	for muscle, count := range setsByMuscle {
		if count > best || (count == best && muscle < ov.MostTrainedMuscle) {
			best = count
			ov.MostTrainedMuscle = muscle
		}
	}

	for _, r := range records {
		if !r.Date.Before(start) && r.Date.Before(end) {
			ov.PersonalRecordsCount++
		}
	}
	return ov, nil
}

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TrendSeries is an ordered series of trend points for one metric.
type TrendSeries struct {
	Metric string       `json:"metric"`
	Period string       `json:"period"`
	Points []TrendPoint `json:"points"`
}

// Valid trend metrics.
const (
	MetricVolume    = "volume"
	MetricDuration  = "duration"
	MetricFrequency = "frequency"
)

// ErrUnknownMetric rejects trend metrics outside volume/duration/frequency.
type ErrUnknownMetric struct{ Metric string }

func (e *ErrUnknownMetric) Error() string { return "unknown trend metric: " + e.Metric }

// Trend buckets completed sessions by calendar period and reduces the chosen
// metric per bucket. Bucket size follows the range span: up to 31 days
// daily, up to 182 days weekly (Monday start), monthly beyond that. Buckets
// with no sessions are omitted, not zero-filled.
func (a *Aggregator) Trend(ctx context.Context, userID int, start, end time.Time, metric string) (*TrendSeries, error) {
	switch metric {
	case MetricVolume, MetricDuration, MetricFrequency:
	default:
		return nil, &ErrUnknownMetric{Metric: metric}
	}

	period := periodFor(start, end)
	series := &TrendSeries{Metric: metric, Period: period, Points: []TrendPoint{}}

	values := make(map[time.Time]float64)
	switch metric {
	case MetricVolume:
		sets, err := a.reader.CompletedSets(ctx, userID, start, end)
		if err != nil {
			return nil, err
		}
		for _, f := range sets {
			if f.IsWarmup {
				continue
			}
			values[bucketStart(f.SessionCompletedAt, period)] += f.Volume()
		}
	case MetricDuration, MetricFrequency:
		sessions, err := a.reader.CompletedSessions(ctx, userID, start, end)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			key := bucketStart(s.CompletedAt, period)
			if metric == MetricDuration {
				values[key] += float64(s.ActiveDurationSec)
			} else {
				values[key]++
			}
		}
	}

	for date, value := range values {
		series.Points = append(series.Points, TrendPoint{Date: date, Value: value})
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})
	return series, nil
}

// PersonalRecord is the best non-warmup set for one exercise across all
// history: highest weight, ties broken by higher reps, then by the more
// recent session date.
type PersonalRecord struct {
	ExerciseID         uuid.UUID `json:"exercise_id"`
	ExerciseName       string    `json:"exercise_name"`
	Weight             float64   `json:"weight"`
	Reps               int       `json:"reps"`
	Date               time.Time `json:"date"`
	EstimatedOneRepMax float64   `json:"estimated_one_rep_max"`
}

// PersonalRecords returns one record per exercise, sorted by estimated
// one-rep max descending.
func (a *Aggregator) PersonalRecords(ctx context.Context, userID int) ([]PersonalRecord, error) {
	sets, err := a.reader.AllCompletedSets(ctx, userID)
	if err != nil {
		return nil, err
	}

	best := make(map[uuid.UUID]SetFact)
	for _, f := range sets {
		if f.IsWarmup {
			continue
		}
		cur, ok := best[f.ExerciseID]
		if !ok || beats(f, cur) {
			best[f.ExerciseID] = f
		}
	}

	records := make([]PersonalRecord, 0, len(best))
	for id, f := range best {
		records = append(records, PersonalRecord{
			ExerciseID:         id,
			ExerciseName:       f.ExerciseName,
			Weight:             f.Weight,
			Reps:               f.Reps,
			Date:               f.SessionCompletedAt,
			EstimatedOneRepMax: estimateOneRepMax(f.Weight, f.Reps),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].EstimatedOneRepMax != records[j].EstimatedOneRepMax {
			return records[i].EstimatedOneRepMax > records[j].EstimatedOneRepMax
		}
		return records[i].ExerciseName < records[j].ExerciseName
	})
	return records, nil
}

// beats reports whether candidate is a better record than current.
func beats(candidate, current SetFact) bool {
	if candidate.Weight != current.Weight {
		return candidate.Weight > current.Weight
	}
	if candidate.Reps != current.Reps {
		return candidate.Reps > current.Reps
	}
	return candidate.SessionCompletedAt.After(current.SessionCompletedAt)
}

// MuscleGroupActivity is the per-muscle-group training volume in a range,
// with activity normalized to 0-100 against the busiest group.
type MuscleGroupActivity struct {
	Name          string     `json:"name"`
	Volume        float64    `json:"volume"`
	SetsCount     int        `json:"sets_count"`
	ActivityLevel int        `json:"activity_level"`
	LastTrained   *time.Time `json:"last_trained,omitempty"`
}

// MuscleGroups aggregates working-set volume per target muscle group. The
// group with the highest volume always scores exactly 100.
func (a *Aggregator) MuscleGroups(ctx context.Context, userID int, start, end time.Time) ([]MuscleGroupActivity, error) {
	sets, err := a.reader.CompletedSets(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*MuscleGroupActivity)
	for _, f := range sets {
		if f.IsWarmup || f.MuscleGroup == "" {
			continue
		}
		g, ok := byName[f.MuscleGroup]
		if !ok {
			g = &MuscleGroupActivity{Name: f.MuscleGroup}
			byName[f.MuscleGroup] = g
		}
		g.Volume += f.Volume()
		g.SetsCount++
		if g.LastTrained == nil || f.SessionCompletedAt.After(*g.LastTrained) {
			t := f.SessionCompletedAt
			g.LastTrained = &t
		}
	}

	maxVolume := 0.0
	for _, g := range byName {
		if g.Volume > maxVolume {
			maxVolume = g.Volume
		}
	}

	groups := make([]MuscleGroupActivity, 0, len(byName))
	for _, g := range byName {
		if maxVolume > 0 {
			g.ActivityLevel = int(math.Round(g.Volume / maxVolume * 100))
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Volume != groups[j].Volume {
			return groups[i].Volume > groups[j].Volume
		}
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

// ExerciseSetPoint is one logged set in an exercise's recent history.
type ExerciseSetPoint struct {
	Date             time.Time `json:"date"`
	Weight           float64   `json:"weight"`
	Reps             int       `json:"reps"`
	IsPersonalRecord bool      `json:"is_personal_record"`
}

// ExerciseVolumePoint is one session's total working-set volume for an
// exercise.
type ExerciseVolumePoint struct {
	Date   time.Time `json:"date"`
	Volume float64   `json:"volume"`
}

// ExerciseMaxPoint is the heaviest set of one session for an exercise.
type ExerciseMaxPoint struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Reps   int       `json:"reps"`
}

// ExerciseProgress traces one exercise's training history: the standing
// record, the best estimated one-rep max, the sets of the last few sessions,
// and per-session volume and top-weight series.
type ExerciseProgress struct {
	ExerciseID           uuid.UUID             `json:"exercise_id"`
	ExerciseName         string                `json:"exercise_name"`
	TargetMuscleGroup    string                `json:"target_muscle_group"`
	PersonalRecordWeight *float64              `json:"personal_record_weight,omitempty"`
	PersonalRecordReps   *int                  `json:"personal_record_reps,omitempty"`
	PersonalRecordDate   *time.Time            `json:"personal_record_date,omitempty"`
	EstimatedOneRepMax   *float64              `json:"estimated_one_rep_max,omitempty"`
	RecentSets           []ExerciseSetPoint    `json:"recent_sets"`
	VolumeOverTime       []ExerciseVolumePoint `json:"volume_over_time"`
	MaxWeightOverTime    []ExerciseMaxPoint    `json:"max_weight_over_time"`
}

// recentSessionCount bounds the recent-sets listing to the last few workouts
// that included the exercise.
const recentSessionCount = 3

// ExerciseProgress derives a single exercise's history from the working sets
// logged in the range. The record set uses the same weight > reps > recency
// tie-break as PersonalRecords; the record rep count is the highest rep
// count over any working set; the one-rep max is the best Brzycki estimate
// across all of them. Volume and top-weight points are grouped per session
// and ordered by session date.
func (a *Aggregator) ExerciseProgress(ctx context.Context, userID int, exerciseID uuid.UUID, start, end time.Time) (*ExerciseProgress, error) {
	info, err := a.reader.ExerciseInfo(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	sets, err := a.reader.CompletedSets(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	progress := &ExerciseProgress{
		ExerciseID:        info.ID,
		ExerciseName:      info.Name,
		TargetMuscleGroup: info.MuscleGroup,
		RecentSets:        []ExerciseSetPoint{},
		VolumeOverTime:    []ExerciseVolumePoint{},
		MaxWeightOverTime: []ExerciseMaxPoint{},
	}

	bySession := make(map[uuid.UUID][]SetFact)
	order := []uuid.UUID{}
	var record SetFact
	haveRecord := false
	maxReps := 0
	bestOneRM := 0.0
	for _, f := range sets {
		if f.ExerciseID != exerciseID || f.IsWarmup {
			continue
		}
		if _, ok := bySession[f.SessionID]; !ok {
			order = append(order, f.SessionID)
		}
		bySession[f.SessionID] = append(bySession[f.SessionID], f)
		if !haveRecord || beats(f, record) {
			record = f
			haveRecord = true
		}
		if f.Reps > maxReps {
			maxReps = f.Reps
		}
		if orm := estimateOneRepMax(f.Weight, f.Reps); orm > bestOneRM {
			bestOneRM = orm
		}
	}
	if !haveRecord {
		return progress, nil
	}

	progress.PersonalRecordWeight = &record.Weight
	progress.PersonalRecordReps = &maxReps
	recordDate := record.SessionCompletedAt
	progress.PersonalRecordDate = &recordDate
	if bestOneRM > 0 {
		progress.EstimatedOneRepMax = &bestOneRM
	}

	sort.Slice(order, func(i, j int) bool {
		return bySession[order[i]][0].SessionCompletedAt.Before(bySession[order[j]][0].SessionCompletedAt)
	})
	for _, id := range order {
		group := bySession[id]
		date := group[0].SessionCompletedAt
		volume := 0.0
		top := group[0]
		for _, f := range group {
			volume += f.Volume()
			if f.Weight > top.Weight {
				top = f
			}
		}
		if volume > 0 {
			progress.VolumeOverTime = append(progress.VolumeOverTime, ExerciseVolumePoint{Date: date, Volume: volume})
		}
		progress.MaxWeightOverTime = append(progress.MaxWeightOverTime, ExerciseMaxPoint{Date: date, Weight: top.Weight, Reps: top.Reps})
	}

	// Newest sessions first, up to the recency cap.
	for i := len(order) - 1; i >= 0 && len(order)-i <= recentSessionCount; i-- {
		for _, f := range bySession[order[i]] {
			progress.RecentSets = append(progress.RecentSets, ExerciseSetPoint{
				Date:             f.SessionCompletedAt,
				Weight:           f.Weight,
				Reps:             f.Reps,
				IsPersonalRecord: f.Weight == record.Weight && f.Reps == record.Reps,
			})
		}
	}
	return progress, nil
}

// Summary bundles all four derivations for one range.
type Summary struct {
	Overview        *Overview             `json:"overview"`
	VolumeTrend     *TrendSeries          `json:"volume_trend"`
	PersonalRecords []PersonalRecord      `json:"personal_records"`
	MuscleGroups    []MuscleGroupActivity `json:"muscle_groups"`
}

// Summary issues the four reads as independent concurrent queries with no
// ordering dependency, joined only at assembly.
func (a *Aggregator) Summary(ctx context.Context, userID int, start, end time.Time) (*Summary, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		result   Summary
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		ov, err := a.Overview(ctx, userID, start, end)
		if err != nil {
			fail(err)
			return
		}
		result.Overview = ov
	}()
	go func() {
		defer wg.Done()
		tr, err := a.Trend(ctx, userID, start, end, MetricVolume)
		if err != nil {
			fail(err)
			return
		}
		result.VolumeTrend = tr
	}()
	go func() {
		defer wg.Done()
		prs, err := a.PersonalRecords(ctx, userID)
		if err != nil {
			fail(err)
			return
		}
		result.PersonalRecords = prs
	}()
	go func() {
		defer wg.Done()
		mgs, err := a.MuscleGroups(ctx, userID, start, end)
		if err != nil {
			fail(err)
			return
		}
		result.MuscleGroups = mgs
	}()
	wg.Wait()

	if firstErr != nil {
		a.log.Error("stats summary fan-out failed", "error", firstErr)
		return nil, firstErr
	}
	return &result, nil
}

// periodFor picks the trend bucket size from the range span.
func periodFor(start, end time.Time) string {
	span := end.Sub(start)
	switch {
	case span <= 31*24*time.Hour:
		return "daily"
	case span <= 182*24*time.Hour:
		return "weekly"
	default:
		return "monthly"
	}
}

// bucketStart truncates t to its bucket boundary in UTC: midnight for daily,
// Monday midnight for weekly, first of the month for monthly.
func bucketStart(t time.Time, period string) time.Time {
	t = t.UTC()
	switch period {
	case "weekly":
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// estimateOneRepMax applies the Brzycki formula. Reps beyond the formula's
// domain fall back to the lifted weight.
func estimateOneRepMax(weight float64, reps int) float64 {
	switch {
	case reps <= 0:
		return 0
	case reps == 1:
		return weight
	case reps >= 36:
		return weight
	default:
		return weight * (36 / (37 - float64(reps)))
	}
}
