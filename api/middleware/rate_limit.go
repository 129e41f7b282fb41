package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meltedmeethas/storefront-backend/api/responses"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// Flow names a throttled customer flow. Each flow keeps its own counters
// and tells the shopper what was limited.
type Flow string

const (
	FlowLogin          Flow = "login"
	FlowSignup         Flow = "signup"
	FlowSendOTP        Flow = "send-otp"
	FlowVerifyOTP      Flow = "verify-otp"
	FlowForgotPassword Flow = "forgot-password"
	FlowResetPassword  Flow = "reset-password"
)

// peekLimit caps how much of a body is buffered to find the email.
const peekLimit = 16 << 10

var flowMessages = map[Flow]string{
	FlowLogin:          "Too many login attempts. Please try again later.",
	FlowSignup:         "Too many signup attempts. Please try again later.",
	FlowSendOTP:        "Too many OTP requests. Please wait before asking for another code.",
	FlowVerifyOTP:      "Too many OTP attempts. Please request a new code.",
	FlowForgotPassword: "Too many OTP requests. Please wait before asking for another code.",
	FlowResetPassword:  "Too many password reset attempts. Please request a new OTP.",
}

func (f Flow) message() string {
	if msg, ok := flowMessages[f]; ok {
		return msg
	}
	return "Too many requests. Please try again later."
}

// mailbox is the email counter a flow draws from. Both flows that mail an
// OTP share one, so alternating between them cannot flood an inbox.
func (f Flow) mailbox() string {
	switch f {
	case FlowSendOTP, FlowForgotPassword:
		return "otp-mail"
	}
	return string(f)
}

// ThrottleRule limits one flow per client IP and per email address inside a
// fixed window. A zero limit disables that counter.
type ThrottleRule struct {
	Flow     Flow
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (r ThrottleRule) enabled() bool {
	return r.Window > 0 && (r.PerIP > 0 || r.PerEmail > 0)
}

// RateLimitStore is a fixed-window counter keyed by scope.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Throttle rejects requests of rule.Flow once a counter passes its limit.
func Throttle(rule ThrottleRule, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rule.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if rule.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					scope := string(rule.Flow) + ":ip:" + ip
					if !checkCounter(ctx, w, logg, store, rule, scope, rule.PerIP, map[string]any{"ip": ip}) {
						return
					}
				}
			}

			if rule.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
					return
				}
				if email != "" {
					digest := hashValue(email)
					scope := rule.Flow.mailbox() + ":email:" + digest
					if !checkCounter(ctx, w, logg, store, rule, scope, rule.PerEmail, map[string]any{"email_hash": digest}) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkCounter(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store RateLimitStore, rule ThrottleRule, scope string, limit int, fields map[string]any) bool {
	allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(limit), rule.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}

	retryAfter := int(rule.Window.Seconds())
	if logg != nil {
		fields["flow"] = string(rule.Flow)
		fields["attempts"] = count
		fields["limit"] = limit
		logg.Warn(logg.WithFields(ctx, fields), "rate limit blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, rule.Flow.message()).
		WithDetails(map[string]any{"flow": string(rule.Flow), "retryAfterSeconds": retryAfter}))
	return false
}

// peekEmail reads the email field without consuming the body for the
// handler. Bodies that are not JSON objects yield no email.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(head, &body); err != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
