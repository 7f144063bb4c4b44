// Package telegram verifies the initData string a Telegram WebApp hands to
// the frontend.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrInitData = errors.New("invalid init data")

// MaxInitDataLen bounds the raw query string accepted from clients.
const MaxInitDataLen = 4096

// clock skew tolerated for auth_date in the future
const futureSkew = 5 * time.Minute

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Sign returns the hash Telegram would attach to values. values must not
// contain "hash".
func Sign(values url.Values, botToken string) string {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)

	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))

	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks the signature and freshness of initData and returns the user
// it was issued for. Anything older than maxAge is rejected.
func Verify(initData, botToken string, now time.Time, maxAge time.Duration) (*WebAppUser, error) {
	if len(initData) > MaxInitDataLen {
		return nil, fmt.Errorf("%w: too long", ErrInitData)
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitData, err)
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, fmt.Errorf("%w: missing hash", ErrInitData)
	}
	values.Del("hash")

	expected, _ := hex.DecodeString(Sign(values, botToken))
	if !hmac.Equal(expected, provided) {
		return nil, fmt.Errorf("%w: bad signature", ErrInitData)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: auth_date", ErrInitData)
	}
	issued := time.Unix(authDate, 0)
	if now.Sub(issued) > maxAge || issued.Sub(now) > futureSkew {
		return nil, fmt.Errorf("%w: stale", ErrInitData)
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return nil, fmt.Errorf("%w: user", ErrInitData)
	}
	return &user, nil
}
