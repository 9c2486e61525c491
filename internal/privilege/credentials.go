package privilege

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/congrego/rollcall/internal/record"
)

// GenerateCredentials derives a one-time login pair for a grant.
//
// The username embeds the member's personal code plus a random
// three-digit disambiguator so two grants for the same member over
// time do not collide. The password is the grant instant in base 36.
// These are convenience tokens for a same-day handover, not secrets.
func GenerateCredentials(personalCode string, now time.Time) record.Credentials {
	return record.Credentials{
		Username: fmt.Sprintf("usher%s%03d", personalCode, rand.IntN(1000)),
		Password: strconv.FormatInt(now.UnixNano(), 36),
	}
}
