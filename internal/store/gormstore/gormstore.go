// Package gormstore persists the domain in MySQL through gorm.
package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	mysqlDuplicateKey  = 1062
)

// Store implements store.Store on a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to MySQL and migrates the schema.
func Open(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger:         NewLogger(log, slowQueryThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// New wraps an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateKey
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) now() time.Time {
	return s.db.NowFunc()
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if isDuplicateKey(err) {
		return store.ErrEmailTaken
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users := make([]models.User, 0)
	err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").Order("id ASC").
		Find(&users).Error
	return users, err
}

// CreateAppointment locks the doctor row so concurrent bookings for the same
// doctor serialize, then checks the slot and inserts. The unique index on
// (doctor_id, active_slot) backs the check if the lock is bypassed.
func (s *Store) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	apt.DateTime = models.NormalizeInstant(apt.DateTime)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doctor models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", apt.DoctorID).
			First(&doctor).Error
		if err != nil {
			return notFound(err)
		}

		if apt.Status == models.StatusScheduled {
			var taken int64
			err = tx.Model(&models.Appointment{}).
				Where("doctor_id = ? AND status = ? AND date_time = ?", apt.DoctorID, models.StatusScheduled, apt.DateTime).
				Count(&taken).Error
			if err != nil {
				return err
			}
			if taken > 0 {
				return store.ErrSlotTaken
			}
		}

		return tx.Create(apt).Error
	})
	if isDuplicateKey(err) {
		return store.ErrSlotTaken
	}
	return err
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var apt models.Appointment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&apt).Error; err != nil {
		return nil, notFound(err)
	}
	return &apt, nil
}

// TransitionAppointment is a compare-and-set on status. active_slot follows
// the new status so a cancelled or completed row leaves the unique index.
func (s *Store) TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	activeSlot := gorm.Expr("NULL")
	if to == models.StatusScheduled {
		activeSlot = gorm.Expr("date_time")
	}

	res := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"active_slot": activeSlot,
			"updated_at":  s.now(),
		})
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return nil, store.ErrSlotTaken
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAppointment(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrStatusChanged
	}
	return s.GetAppointment(ctx, id)
}

func (s *Store) SetPrescription(ctx context.Context, id, prescription string) (*models.Appointment, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"prescription": prescription,
			"updated_at":   s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetAppointment(ctx, id)
}

func (s *Store) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	q := s.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.DoctorID != "" {
		q = q.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != "" {
		q = q.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("date_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date_time < ?", filter.To)
	}

	appointments := make([]models.Appointment, 0)
	err := q.Order("date_time DESC").Order("created_at DESC").Find(&appointments).Error
	return appointments, err
}

func (s *Store) CreateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	if rec.Date.IsZero() {
		rec.Date = s.now()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var rec models.MedicalRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.MedicalRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"subjective": rec.Subjective,
			"objective":  rec.Objective,
			"assessment": rec.Assessment,
			"plan":       rec.Plan,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}

	fresh, err := s.GetRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

func (s *Store) ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	records := make([]models.MedicalRecord, 0)
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date DESC").Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Where("is_revoked = ?", false).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
