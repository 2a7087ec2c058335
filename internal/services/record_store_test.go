package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-records-service/internal/domain"
	"patient-records-service/internal/domain/dtos"
	"patient-records-service/internal/domain/entities"
)

// testClock hands out strictly increasing instants, one second apart, so
// timestamp ordering is deterministic.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (*RecordStore, *MockStorageAdapter) {
	t.Helper()
	storage := NewMockStorageAdapter()
	logger := log.New(os.Stdout, "test-record-store: ", log.LstdFlags)
	store := NewRecordStore(storage, &sequentialIDs{}, logger)
	store.now = newTestClock().Now
	return store, storage
}

func validInput() dtos.PatientInput {
	return dtos.PatientInput{
		FirstName:        "Ada",
		LastName:         "Lovelace",
		DateOfBirth:      "1990-01-01",
		Gender:           "Female",
		Phone:            "555-0100",
		Email:            "ada@example.com",
		Address:          "12 Analytical Way",
		EmergencyContact: "Charles Babbage",
		EmergencyPhone:   "555-0101",
		BloodType:        "O+",
	}
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()

	patient, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, "id-0001", patient.ID)
	assert.Equal(t, "Ada", patient.FirstName)
	assert.Equal(t, "Lovelace", patient.LastName)
	assert.Equal(t, entities.BloodTypeOPositive, patient.BloodType)
	assert.True(t, patient.CreatedAt.Equal(patient.UpdatedAt), "new records start with createdAt == updatedAt")
	assert.NotNil(t, patient.MedicalHistory)
	assert.Empty(t, patient.MedicalHistory)
	assert.NotNil(t, patient.LabResults)
	assert.Empty(t, patient.LabResults)

	all := store.ListAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, patient.ID, all[0].ID)
	assert.Equal(t, int32(1), storage.WriteCallCount, "create must persist exactly once")
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dtos.PatientInput)
		field  string
	}{
		{"missing first name", func(in *dtos.PatientInput) { in.FirstName = "" }, "firstName"},
		{"blank first name", func(in *dtos.PatientInput) { in.FirstName = "   " }, "firstName"},
		{"missing last name", func(in *dtos.PatientInput) { in.LastName = "" }, "lastName"},
		{"missing date of birth", func(in *dtos.PatientInput) { in.DateOfBirth = "" }, "dateOfBirth"},
		{"malformed date of birth", func(in *dtos.PatientInput) { in.DateOfBirth = "01/02/1990" }, "dateOfBirth"},
		{"unknown blood type", func(in *dtos.PatientInput) { in.BloodType = "Z+" }, "bloodType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := newTestStore(t)
			ctx := context.Background()

			input := validInput()
			tt.mutate(&input)

			_, err := store.Create(ctx, input)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)

			assert.Empty(t, store.ListAll(ctx), "failed create must leave the collection unchanged")
			assert.Equal(t, int32(0), storage.WriteCallCount, "failed create must not persist")
		})
	}
}

func TestUpdatePreservesIdentityAndAdvancesUpdatedAt(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu"})
	require.NoError(t, err)
	before, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)

	input := validInput()
	input.Phone = "555-9999"
	input.Email = "countess@example.com"

	updated, err := store.Update(ctx, created.ID, input)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "update must not change createdAt")
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt), "update must advance updatedAt")
	assert.Equal(t, "555-9999", updated.Phone)
	assert.Equal(t, "countess@example.com", updated.Email)
	require.Len(t, updated.MedicalHistory, 1, "update must preserve sub-records")
	assert.Equal(t, "Flu", updated.MedicalHistory[0].Diagnosis)
}

func TestUpdateUnknownID(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Update(context.Background(), "missing", validInput())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateValidation(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	writesAfterCreate := storage.WriteCallCount

	input := validInput()
	input.LastName = ""
	_, err = store.Update(ctx, created.ID, input)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "lastName", validationErr.Field)
	assert.Equal(t, writesAfterCreate, storage.WriteCallCount)

	unchanged, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", unchanged.LastName)
}

func TestDeleteCascadesSubRecords(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu"})
	require.NoError(t, err)
	_, err = store.AppendLab(ctx, created.ID, dtos.LabInput{Date: "2023-06-01", TestName: "CBC"})
	require.NoError(t, err)

	removed, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)
	require.Len(t, removed.MedicalHistory, 1, "caller gets the full removed record for its notification")

	assert.Empty(t, store.ListAll(ctx))
	assert.Empty(t, store.Search(ctx, "lovelace"))

	_, err = store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUnknownID(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendHistoryGrowsCollectionMonotonically(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	first, err := store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu", Doctor: "Dr. Snow"})
	require.NoError(t, err)
	require.Len(t, first.MedicalHistory, 1)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt))

	second, err := store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2024-01-10", Diagnosis: "Sprain"})
	require.NoError(t, err)
	require.Len(t, second.MedicalHistory, 2)

	// Prior entries are never mutated by later appends.
	assert.Equal(t, first.MedicalHistory[0], second.MedicalHistory[0])
	assert.Equal(t, "Flu", second.MedicalHistory[0].Diagnosis)
}

func TestAppendHistoryValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Diagnosis: "Flu"})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "date", validationErr.Field)

	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "diagnosis", validationErr.Field)

	_, err = store.AppendHistory(ctx, "missing", dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendLabDefaultsStatusToNormal(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	patient, err := store.AppendLab(ctx, created.ID, dtos.LabInput{Date: "2023-06-01", TestName: "CBC"})
	require.NoError(t, err)
	require.Len(t, patient.LabResults, 1)
	assert.Equal(t, entities.LabStatusNormal, patient.LabResults[0].Status)
}

func TestAppendLabValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	var validationErr *domain.ValidationError

	_, err = store.AppendLab(ctx, created.ID, dtos.LabInput{TestName: "CBC"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "date", validationErr.Field)

	_, err = store.AppendLab(ctx, created.ID, dtos.LabInput{Date: "2023-06-01"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "testName", validationErr.Field)

	_, err = store.AppendLab(ctx, created.ID, dtos.LabInput{Date: "2023-06-01", TestName: "CBC", Status: "Unusual"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "status", validationErr.Field)
}

func TestAppendLabKeepsFileHandleOutOfPersistence(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	patient, err := store.AppendLab(ctx, created.ID, dtos.LabInput{
		Date:     "2023-06-01",
		TestName: "CBC",
		FileName: "cbc-report.pdf",
		FileURL:  "blob:session-handle-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "blob:session-handle-1234", patient.LabResults[0].FileURL, "handle stays available in-session")

	blob, ok, err := storage.Read(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, blob, "cbc-report.pdf")
	assert.NotContains(t, blob, "session-handle-1234", "transient handle must never be persisted")
}

func TestSearch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ada, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	grace := validInput()
	grace.FirstName = "Grace"
	grace.LastName = "Hopper"
	grace.Email = "grace@navy.mil"
	grace.Phone = "555-0200"
	graceRec, err := store.Create(ctx, grace)
	require.NoError(t, err)

	t.Run("empty term returns full list in order", func(t *testing.T) {
		got := store.Search(ctx, "")
		require.Len(t, got, 2)
		assert.Equal(t, ada.ID, got[0].ID)
		assert.Equal(t, graceRec.ID, got[1].ID)
	})

	t.Run("case-insensitive full-name match", func(t *testing.T) {
		got := store.Search(ctx, "lovelace")
		require.Len(t, got, 1)
		assert.Equal(t, ada.ID, got[0].ID)

		got = store.Search(ctx, "ADA LOVE")
		require.Len(t, got, 1)
		assert.Equal(t, ada.ID, got[0].ID)
	})

	t.Run("email match", func(t *testing.T) {
		got := store.Search(ctx, "NAVY.MIL")
		require.Len(t, got, 1)
		assert.Equal(t, graceRec.ID, got[0].ID)
	})

	t.Run("phone substring match", func(t *testing.T) {
		got := store.Search(ctx, "0200")
		require.Len(t, got, 1)
		assert.Equal(t, graceRec.ID, got[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, store.Search(ctx, "xyz"))
	})
}

func TestLoadMissingSnapshotStartsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Empty(t, store.ListAll(context.Background()))
}

func TestLoadCorruptSnapshotFails(t *testing.T) {
	store, storage := newTestStore(t)
	storage.Seed(StorageKey, `{"version":1,"patients":`)

	_, err := store.Load(context.Background())
	var deserializationErr *domain.DeserializationError
	assert.ErrorAs(t, err, &deserializationErr)
}

func TestLoadLegacyBareArray(t *testing.T) {
	store, storage := newTestStore(t)
	storage.Seed(StorageKey, `[{"id":"1718000000000","firstName":"Ada","lastName":"Lovelace",
		"dateOfBirth":"1990-01-01","gender":"Female","phone":"","email":"","address":"",
		"emergencyContact":"","emergencyPhone":"","bloodType":"",
		"medicalHistory":[],"labResults":[],
		"createdAt":"2024-06-10T08:00:00.000Z","updatedAt":"2024-06-10T08:00:00.000Z"}]`)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Ada", loaded[0].FirstName)
	assert.Equal(t, "1990-01-01", loaded[0].DateOfBirth.Format(entities.DateLayout))
}

func TestRoundTripReproducesCollection(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu", Treatment: "Rest", Doctor: "Dr. Snow", Notes: "follow up"})
	require.NoError(t, err)
	_, err = store.AppendLab(ctx, created.ID, dtos.LabInput{Date: "2023-06-01", TestName: "CBC", Result: "ok", NormalRange: "4-11", Status: "Abnormal", FileName: "cbc.pdf", FileURL: "blob:handle"})
	require.NoError(t, err)

	before := store.ListAll(ctx)

	reloadedStore := NewRecordStore(storage, &sequentialIDs{}, log.New(os.Stdout, "reload: ", log.LstdFlags))
	after, err := reloadedStore.Load(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)

	// The transient file handle is expected to be gone after a reload; the
	// persisted form keeps only the display name. Everything else must be
	// field-for-field identical, which the canonical JSON form captures.
	assert.Equal(t, "blob:handle", before[0].LabResults[0].FileURL)
	assert.Empty(t, after[0].LabResults[0].FileURL)
	assert.Equal(t, "cbc.pdf", after[0].LabResults[0].FileName)

	beforeJSON, err := json.Marshal(before)
	require.NoError(t, err)
	afterJSON, err := json.Marshal(after)
	require.NoError(t, err)
	assert.JSONEq(t, string(beforeJSON), string(afterJSON))
}

func TestWriteFailureRollsBack(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	storage.WriteFunc = func(ctx context.Context, key, value string) error {
		return errors.New("disk full")
	}

	var persistenceErr *domain.PersistenceError

	_, err = store.Create(ctx, validInput())
	require.ErrorAs(t, err, &persistenceErr)
	assert.Len(t, store.ListAll(ctx), 1, "failed create must not be observable")

	_, err = store.Delete(ctx, created.ID)
	require.ErrorAs(t, err, &persistenceErr)
	assert.Len(t, store.ListAll(ctx), 1, "failed delete must not be observable")

	_, err = store.AppendHistory(ctx, created.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu"})
	require.ErrorAs(t, err, &persistenceErr)

	unchanged, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.MedicalHistory, "failed append must not be observable")
}

// TestPatientLifecycleScenario walks the reference scenario end to end:
// create, derive age, append history, search, delete.
func TestPatientLifecycleScenario(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ada, err := store.Create(ctx, dtos.PatientInput{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "1990-01-01"})
	require.NoError(t, err)
	require.Len(t, store.ListAll(ctx), 1)

	reference, err := time.Parse(entities.DateLayout, "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, 34, entities.AgeInYears(ada.DateOfBirth, reference))

	withHistory, err := store.AppendHistory(ctx, ada.ID, dtos.HistoryInput{Date: "2023-05-01", Diagnosis: "Flu"})
	require.NoError(t, err)
	require.Len(t, withHistory.MedicalHistory, 1)
	assert.True(t, withHistory.UpdatedAt.After(withHistory.CreatedAt))

	found := store.Search(ctx, "lovelace")
	require.Len(t, found, 1)
	assert.Equal(t, ada.ID, found[0].ID)
	assert.Empty(t, store.Search(ctx, "xyz"))

	_, err = store.Delete(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, store.Search(ctx, "lovelace"))
}
