package checkin

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/store"
)

var foldCaser = cases.Fold()

// foldName normalizes a name for matching: NFC first so composed and
// decomposed accents compare equal, then Unicode case folding.
func foldName(s string) string {
	return foldCaser.String(norm.NFC.String(s))
}

// SearchMembers returns members whose name contains the query,
// case- and accent-composition-insensitively. Empty query matches
// nobody rather than everybody.
//
// Selecting a result feeds its personal code into the pipeline as the
// Smart Search intake channel.
func SearchMembers(ctx context.Context, st *store.Store, query string) ([]record.Member, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []record.Member{}, nil
	}
	needle := foldName(query)

	members, err := st.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	matches := []record.Member{}
	for _, m := range members {
		if strings.Contains(foldName(m.Name), needle) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}
