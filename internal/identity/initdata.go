package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/requestcontext"
)

// webAppKey is the HMAC key Telegram derives the per-bot secret with.
const webAppKey = "WebAppData"

// InitData is the verified part of a mini app launch payload.
type InitData struct {
	UserID   models.UserID
	AuthDate time.Time
}

type webAppUser struct {
	ID int64 `json:"id"`
}

// InitDataValidator checks the signed launch payload Telegram hands to mini
// apps. The secret is HMAC-SHA256("WebAppData", bot token).
type InitDataValidator struct {
	secret []byte
	maxAge time.Duration
	leeway time.Duration
}

func NewInitDataValidator(botToken string, maxAge, leeway time.Duration) *InitDataValidator {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if leeway < 0 {
		leeway = DefaultLeeway
	}
	mac := hmac.New(sha256.New, []byte(webAppKey))
	mac.Write([]byte(botToken))
	return &InitDataValidator{secret: mac.Sum(nil), maxAge: maxAge, leeway: leeway}
}

// Validate checks the hash and the auth_date window and returns the user the
// payload was issued to.
func (v *InitDataValidator) Validate(ctx context.Context, raw string) (*InitData, error) {
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data is required")
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data is malformed")
	}
	got, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(got) == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data is not signed")
	}
	if !hmac.Equal(got, v.sign(values)) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data signature mismatch")
	}

	unix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data has no auth date")
	}
	authDate := time.Unix(unix, 0).UTC()
	now := requestcontext.Now(ctx)
	switch age := now.Sub(authDate); {
	case age > v.maxAge:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data is too old")
	case age < -v.leeway:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data issued in the future")
	}

	var user webAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "init data has no user")
	}
	return &InitData{UserID: models.UserID(user.ID), AuthDate: authDate}, nil
}

// Sign builds a signed payload for userID. Used by tests and local tooling.
func (v *InitDataValidator) Sign(userID models.UserID, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("user", `{"id":`+userID.String()+`}`)
	values.Set("hash", hex.EncodeToString(v.sign(values)))
	return values.Encode()
}

// sign computes the hash over the sorted key=value lines, hash excluded.
func (v *InitDataValidator) sign(values url.Values) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}
