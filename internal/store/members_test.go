package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congrego/rollcall/internal/record"
)

func TestMembers_InsertAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := record.Member{
		ID:           record.NewID(),
		Name:         "Ama Serwaa",
		Area:         "Dansoman",
		GuardianName: "Afia Serwaa",
		BirthYear:    2008,
		PersonalCode: "54321",
	}
	require.NoError(t, s.InsertMember(ctx, m))

	got, err := s.MemberByCode(ctx, "54321")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m, *got)

	byID, err := s.MemberByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, m.Name, byID.Name)

	missing, err := s.MemberByCode(ctx, "00000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMembers_DuplicateCodeRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMember(ctx, record.Member{ID: record.NewID(), Name: "A", PersonalCode: "11111"}))
	err := s.InsertMember(ctx, record.Member{ID: record.NewID(), Name: "B", PersonalCode: "11111"})
	assert.Error(t, err, "personal codes are unique")
}

func TestMembers_ListOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMember(ctx, record.Member{ID: record.NewID(), Name: "Yaw", PersonalCode: "22222"}))
	require.NoError(t, s.InsertMember(ctx, record.Member{ID: record.NewID(), Name: "Abena", PersonalCode: "33333"}))

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Abena", members[0].Name)
	assert.Equal(t, "Yaw", members[1].Name)
}

func TestMembers_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := record.Member{ID: record.NewID(), Name: "Kofi", PersonalCode: "44444"}
	require.NoError(t, s.InsertMember(ctx, m))

	m.Area = "Osu"
	require.NoError(t, s.UpdateMember(ctx, m))

	got, err := s.MemberByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Osu", got.Area)

	err = s.UpdateMember(ctx, record.Member{ID: "nope", Name: "X", PersonalCode: "55555"})
	assert.Error(t, err)
}

func TestMembers_DeleteCascadesAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := record.Member{ID: record.NewID(), Name: "Esi", PersonalCode: "66666"}
	require.NoError(t, s.InsertMember(ctx, m))
	require.NoError(t, s.InsertAccount(ctx, record.Account{
		ID:           record.NewID(),
		Email:        "esi@example.com",
		Password:     "pw",
		Role:         record.RoleTeen,
		PersonalCode: "66666",
	}))

	require.NoError(t, s.DeleteMember(ctx, m.ID))

	gone, err := s.MemberByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	acct, err := s.AccountByCode(ctx, "66666")
	require.NoError(t, err)
	assert.Nil(t, acct, "account deleted with its member")
}
