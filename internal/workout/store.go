package workout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/models"
)

// Store is the persistence boundary of the lifecycle engine. The pgx-backed
// implementation lives in internal/storage; an in-memory implementation used
// by tests lives in internal/storage/memstore.
//
// Every mutating call is a single atomic transaction in the backing store.
// Lookups scoped by userID return *NotFoundError for unknown ids and for ids
// owned by a different user.
type Store interface {
	// Exercise catalog.
	CreateExercise(ctx context.Context, e *models.Exercise) error
	GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)

	// Templates.
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, userID int, id uuid.UUID) (*models.Template, error)
	ListTemplates(ctx context.Context, userID int) ([]models.Template, error)

	// Sessions. CreateSession persists the session together with its
	// template links, exercises and materialized sets. GetSession returns
	// the full graph with exercise names and muscle groups resolved.
	CreateSession(ctx context.Context, s *models.WorkoutSession) error
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error)
	ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error)
	SaveSession(ctx context.Context, s *models.WorkoutSession) error

	AddSessionExercise(ctx context.Context, e *models.SessionExercise) error
	SaveSessionExercise(ctx context.Context, e *models.SessionExercise) error

	// AppendSet assigns set.SetNumber = MAX(set_number)+1 for the owning
	// exercise and inserts the row, both inside one transaction so a crash
	// cannot leave the number computed but the set unwritten.
	AppendSet(ctx context.Context, set *models.Set) error
	SaveSet(ctx context.Context, set *models.Set) error
}
