package checkin

import (
	"context"

	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/store"
)

// Lookup resolves a validated personal code to its member.
// Returns NotFoundError when no member holds the code.
//
// The store's unique index on personal_code makes this a point lookup;
// collection sizes up to low thousands are no concern.
func Lookup(ctx context.Context, st *store.Store, code string) (*record.Member, error) {
	m, err := st.MemberByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &NotFoundError{Code: code}
	}
	return m, nil
}
