package paystation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The merchant session is the only mechanism tying a gateway transaction back
// to a submission. It crosses the untrusted browser redirect as well as the
// authenticated postback, so decoding is defensive in both cases: a token that
// doesn't resolve to a stored submission is worthless regardless of shape.

// EncodeMerchantSession builds the session token for a submission. The
// timestamp suffix only makes retried initiations distinguishable on the
// gateway side; it is discarded on decode.
func EncodeMerchantSession(submissionID int64, now time.Time) string {
	return fmt.Sprintf("%d-%d", submissionID, now.Unix())
}

// DecodeMerchantSession recovers the submission ID from a session token.
// The token is split on the first "-" only, so a corrupted suffix with extra
// separators still yields the left segment. Returns 0 for tokens with no
// separator or a non-numeric left segment; 0 never resolves to a submission,
// so callers must verify the ID against the store before trusting it.
func DecodeMerchantSession(token string) int64 {
	left, _, found := strings.Cut(token, "-")
	if !found {
		return 0
	}
	id, err := strconv.ParseInt(left, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
