package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/audit"
	"rollcall/internal/initdata"
	"rollcall/internal/registration/dedupe"
	"rollcall/internal/registration/models"
	"rollcall/internal/registration/store"
	dErrors "rollcall/pkg/domain-errors"
)

type stubVerifier struct {
	principal models.Principal
	err       error
}

func (v stubVerifier) Verify(string) (models.Principal, error) {
	return v.principal, v.err
}

func verifiedAs(id, name string) stubVerifier {
	return stubVerifier{principal: models.Principal{ID: id, DisplayName: name}}
}

func rejecting() stubVerifier {
	return stubVerifier{err: initdata.ErrSignatureMismatch}
}

func TestSubmitVerifiedStampsPrincipal(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	svc := New(st, verifiedAs("42", "Jean Dupont"), Config{AllowUpdate: true})

	receipt, err := svc.Submit(context.Background(), "proof", models.Submission{FullName: "Jean Paul Dupont"})
	require.NoError(t, err)
	assert.NotZero(t, receipt.ID)
	assert.False(t, receipt.CreatedAt.IsZero())

	rec, err := st.Get(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.CreatedBy)
}

func TestSubmitUnverifiedFallsBackToSentinel(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	trail := audit.NewInMemoryStore()
	svc := New(st, rejecting(), Config{AllowUpdate: true}, WithAudit(audit.NewPublisher(trail)))

	receipt, err := svc.Submit(context.Background(), "bad-proof", models.Submission{FullName: "Jean"})
	require.NoError(t, err)

	rec, err := st.Get(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnverifiedPrincipal, rec.CreatedBy)

	// Both the rejection and the write appear on the trail.
	events, err := trail.All(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionProofRejected, events[0].Action)
	assert.Equal(t, audit.ActionRecordSubmitted, events[1].Action)
	assert.Equal(t, "unverified", events[1].Outcome)
}

func TestSubmitStrictModeRejectsUnverified(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	svc := New(st, rejecting(), Config{StrictAuth: true})

	_, err := svc.Submit(context.Background(), "bad-proof", models.Submission{FullName: "Jean"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	all, err := st.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitStrictModeStillAcceptsVerified(t *testing.T) {
	svc := New(store.NewInMemoryRecordStore(), verifiedAs("42", "Jean"), Config{StrictAuth: true})

	_, err := svc.Submit(context.Background(), "proof", models.Submission{FullName: "Jean"})
	assert.NoError(t, err)
}

func TestSubmitRequiresFullName(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	svc := New(st, verifiedAs("42", "Jean"), Config{})

	_, err := svc.Submit(context.Background(), "proof", models.Submission{Phone: "034"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	all, err := st.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCheckDuplicates(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	_, err := st.Insert(context.Background(), models.Submission{
		FullName: "Jean Paul Dupont",
		Phone:    "034 00 00 00",
	}, models.UnverifiedPrincipal)
	require.NoError(t, err)

	svc := New(st, rejecting(), Config{})

	res, err := svc.CheckDuplicates(context.Background(), dedupe.Query{FullName: "dupont"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	require.Len(t, res.Candidates, 1)

	res, err = svc.CheckDuplicates(context.Background(), dedupe.Query{Phone: "0340000000"})
	require.NoError(t, err)
	assert.True(t, res.Found)

	res, err = svc.CheckDuplicates(context.Background(), dedupe.Query{FullName: "Marie"})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
}

func TestUpdateDisabledByConfig(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	rec, err := st.Insert(context.Background(), models.Submission{FullName: "Jean"}, models.UnverifiedPrincipal)
	require.NoError(t, err)

	svc := New(st, rejecting(), Config{AllowUpdate: false})

	newName := "Jean Paul"
	_, err = svc.Update(context.Background(), rec.ID, models.Update{FullName: &newName})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestUpdateNotFound(t *testing.T) {
	svc := New(store.NewInMemoryRecordStore(), rejecting(), Config{AllowUpdate: true})

	_, err := svc.Update(context.Background(), 99, models.Update{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestGetNotFound(t *testing.T) {
	svc := New(store.NewInMemoryRecordStore(), rejecting(), Config{})

	_, err := svc.Get(context.Background(), 99)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDeleteIsIdempotentAndNeverFaults(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	rec, err := st.Insert(context.Background(), models.Submission{FullName: "Jean"}, models.UnverifiedPrincipal)
	require.NoError(t, err)

	svc := New(st, rejecting(), Config{})

	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	require.NoError(t, svc.Delete(context.Background(), 9999))
}

func TestListFiltersByName(t *testing.T) {
	st := store.NewInMemoryRecordStore()
	for _, name := range []string{"Jean Paul Dupont", "Marie Rasoa"} {
		_, err := st.Insert(context.Background(), models.Submission{FullName: name}, models.UnverifiedPrincipal)
		require.NoError(t, err)
	}

	svc := New(st, rejecting(), Config{})

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.List(context.Background(), "DUPONT")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Jean Paul Dupont", filtered[0].FullName)

	none, err := svc.List(context.Background(), "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
