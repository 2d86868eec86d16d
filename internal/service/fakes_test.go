package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

var kst = time.FixedZone("KST", 9*3600)

func sessionDay() time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
}

func kstAt(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, kst)
}

// memoryAttendanceStore is a version-checked in-memory record store.
type memoryAttendanceStore struct {
	mu      sync.Mutex
	records map[string]models.AttendanceRecord
	seq     int

	// beforeSave runs once, outside the lock, ahead of the next Save.
	beforeSave func(id string)
	saveErrs   map[string]error
	saves      int
	loadErr    error
}

func newMemoryAttendanceStore(records ...models.AttendanceRecord) *memoryAttendanceStore {
	s := &memoryAttendanceStore{records: make(map[string]models.AttendanceRecord), saveErrs: make(map[string]error)}
	for _, rec := range records {
		if rec.Version == 0 {
			rec.Version = 1
		}
		if rec.Status == "" {
			rec.Status = models.AttendanceStatusUnset
		}
		s.records[rec.ID] = rec.Clone()
	}
	return s
}

func (s *memoryAttendanceStore) Create(ctx context.Context, record *models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.StudentID == record.StudentID && existing.ScheduleID == record.ScheduleID && sameDay(existing.SessionDate, record.SessionDate) {
			return appErrors.Clone(appErrors.ErrConflict, "attendance record already exists for this session")
		}
	}
	if record.ID == "" {
		s.seq++
		record.ID = fmt.Sprintf("rec-new-%d", s.seq)
	}
	if record.Status == "" {
		record.Status = models.AttendanceStatusUnset
	}
	record.Version = 1
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *memoryAttendanceStore) GetByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	out := rec.Clone()
	return &out, nil
}

func (s *memoryAttendanceStore) FindBySession(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.StudentID == key.StudentID && rec.ScheduleID == key.ScheduleID && sameDay(rec.SessionDate, key.SessionDate) {
			out := rec.Clone()
			return &out, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
}

func (s *memoryAttendanceStore) LoadOpenAttendanceRecords(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	all, _ := s.ListByDate(ctx, date)
	var open []models.AttendanceRecord
	for _, rec := range all {
		if rec.OpenForSweep() {
			open = append(open, rec)
		}
	}
	return open, nil
}

func (s *memoryAttendanceStore) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range s.records {
		if sameDay(rec.SessionDate, date) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryAttendanceStore) Save(ctx context.Context, record *models.AttendanceRecord) error {
	s.mu.Lock()
	hook := s.beforeSave
	s.beforeSave = nil
	s.mu.Unlock()
	if hook != nil {
		hook(record.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if err, ok := s.saveErrs[record.ID]; ok {
		return err
	}
	stored, ok := s.records[record.ID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	if stored.Version != record.Version {
		return appErrors.Clone(appErrors.ErrConcurrentModification, "version mismatch")
	}
	record.Version++
	s.records[record.ID] = record.Clone()
	return nil
}

// commit simulates a write by another process.
func (s *memoryAttendanceStore) commit(id string, fn func(*models.AttendanceRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	fn(&rec)
	rec.Version++
	s.records[id] = rec
}

func (s *memoryAttendanceStore) get(id string) models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Clone()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type scheduleStub struct {
	sessions map[string]models.ScheduledSession
	err      error
	calls    int
}

func newScheduleStub() *scheduleStub {
	return &scheduleStub{sessions: map[string]models.ScheduledSession{
		"sch-1": {ID: "sch-1", CourseID: "course-1", Weekday: time.Monday, StartTime: models.NewTimeOfDay(10, 0, 0), EndTime: models.NewTimeOfDay(11, 30, 0)},
		"sch-2": {ID: "sch-2", CourseID: "course-2", Weekday: time.Monday, StartTime: models.NewTimeOfDay(14, 0, 0), EndTime: models.NewTimeOfDay(15, 0, 0)},
	}}
}

func (s *scheduleStub) GetScheduledSession(ctx context.Context, scheduleID string) (*models.ScheduledSession, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[scheduleID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return &session, nil
}

type autoAbsentCall struct {
	RecordID, StudentID, ScheduleID string
}

type recordingSink struct {
	mu         sync.Mutex
	autoAbsent []autoAbsentCall
	effects    []models.SideEffect
	versions   []int64
	err        error
}

func (s *recordingSink) OnAutoAbsent(ctx context.Context, recordID, studentID, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoAbsent = append(s.autoAbsent, autoAbsentCall{recordID, studentID, scheduleID})
	return s.err
}

func (s *recordingSink) OnCreditEffect(ctx context.Context, effect models.SideEffect, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, effect)
	s.versions = append(s.versions, version)
	return s.err
}

func (s *recordingSink) autoAbsentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.autoAbsent)
}

func bookedRecord(id, studentID, scheduleID string) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:          id,
		StudentID:   studentID,
		ScheduleID:  scheduleID,
		SessionDate: sessionDay(),
		Status:      models.AttendanceStatusUnset,
		Version:     1,
	}
}
